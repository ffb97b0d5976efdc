// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cache

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/noirfetch/core"
)

// Format versions of the persisted value types. Bump on any change to the
// encoded field set; Unmarshal rejects versions it does not know, and the
// store treats that as a skippable corrupt entry.
const (
	resultRecordFormatV1 = 1
	queryEntryFormatV1   = 1
)

var (
	stringPtrSer   = ord.NewPtrSer[string](ord.String)
	float64PtrSer  = ord.NewPtrSer[float64](varint.Float64)
	stringSliceSer = ord.NewSliceSer[string](ord.String)
)

// queryEntry is the persisted form of one query's UUID set. The full query
// text is stored alongside the set because the key only carries its hash.
type queryEntry struct {
	Text  string
	UUIDs []string
}

// ResultRecordMUS serializes core.ResultRecord values with a leading format
// version.
var ResultRecordMUS resultRecordSer

// queryEntryMUS serializes queryEntry values with a leading format version.
var queryEntryMUS queryEntrySer

type resultRecordSer struct{}

var _ mus.Serializer[core.ResultRecord] = resultRecordSer{}

func (resultRecordSer) Marshal(r core.ResultRecord, bs []byte) (n int) {
	n = varint.Int.Marshal(resultRecordFormatV1, bs)
	n += ord.String.Marshal(r.UUID, bs[n:])
	n += ord.String.Marshal(r.TrecID, bs[n:])
	n += stringPtrSer.Marshal(r.Text, bs[n:])
	n += float64PtrSer.Marshal(r.PageRank, bs[n:])
	n += float64PtrSer.Marshal(r.SpamRank, bs[n:])
	n += varint.Float64.Marshal(r.Score, bs[n:])
	n += ord.String.Marshal(r.Snippet, bs[n:])
	n += ord.Bool.Marshal(r.Cleaned, bs[n:])
	return n
}

func (resultRecordSer) Unmarshal(bs []byte) (r core.ResultRecord, n int, err error) {
	version, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if version != resultRecordFormatV1 {
		err = fmt.Errorf("%w: result record format %d", ErrUnknownFormatVersion, version)
		return
	}
	var n1 int
	if r.UUID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.TrecID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Text, n1, err = stringPtrSer.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.PageRank, n1, err = float64PtrSer.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.SpamRank, n1, err = float64PtrSer.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Score, n1, err = varint.Float64.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Snippet, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	r.Cleaned, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return r, n, err
}

func (resultRecordSer) Size(r core.ResultRecord) (size int) {
	size = varint.Int.Size(resultRecordFormatV1)
	size += ord.String.Size(r.UUID)
	size += ord.String.Size(r.TrecID)
	size += stringPtrSer.Size(r.Text)
	size += float64PtrSer.Size(r.PageRank)
	size += float64PtrSer.Size(r.SpamRank)
	size += varint.Float64.Size(r.Score)
	size += ord.String.Size(r.Snippet)
	size += ord.Bool.Size(r.Cleaned)
	return size
}

func (s resultRecordSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type queryEntrySer struct{}

var _ mus.Serializer[queryEntry] = queryEntrySer{}

func (queryEntrySer) Marshal(e queryEntry, bs []byte) (n int) {
	n = varint.Int.Marshal(queryEntryFormatV1, bs)
	n += ord.String.Marshal(e.Text, bs[n:])
	n += stringSliceSer.Marshal(e.UUIDs, bs[n:])
	return n
}

func (queryEntrySer) Unmarshal(bs []byte) (e queryEntry, n int, err error) {
	version, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if version != queryEntryFormatV1 {
		err = fmt.Errorf("%w: query entry format %d", ErrUnknownFormatVersion, version)
		return
	}
	var n1 int
	if e.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	e.UUIDs, n1, err = stringSliceSer.Unmarshal(bs[n:])
	n += n1
	return e, n, err
}

func (queryEntrySer) Size(e queryEntry) (size int) {
	size = varint.Int.Size(queryEntryFormatV1)
	size += ord.String.Size(e.Text)
	size += stringSliceSer.Size(e.UUIDs)
	return size
}

func (s queryEntrySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

// MarshalResultRecord serializes a ResultRecord to bytes.
func MarshalResultRecord(record *core.ResultRecord) []byte {
	buf := make([]byte, ResultRecordMUS.Size(*record))
	ResultRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalResultRecord deserializes a ResultRecord from bytes.
func UnmarshalResultRecord(data []byte) (*core.ResultRecord, error) {
	record, _, err := ResultRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func marshalQueryEntry(entry queryEntry) []byte {
	buf := make([]byte, queryEntryMUS.Size(entry))
	queryEntryMUS.Marshal(entry, buf)
	return buf
}

func unmarshalQueryEntry(data []byte) (queryEntry, error) {
	entry, _, err := queryEntryMUS.Unmarshal(data)
	return entry, err
}

// Package docstore persists UBJSON documents in a key-value store. Each record
// is the blake2b-256 checksum of the payload followed by the payload itself.
package docstore

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/ubjson/pkg/db"
	"github.com/eigerco/ubjson/pkg/db/pebble"
	"github.com/eigerco/ubjson/pkg/log"
	"github.com/eigerco/ubjson/pkg/serialization"
	"github.com/eigerco/ubjson/pkg/serialization/codec"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

const (
	keyPrefix    = "doc:"
	checksumSize = blake2b.Size256
)

type Store struct {
	kv         db.KVStore
	serializer *serialization.Serializer
}

// New wraps kv. Decoder options apply to every document read back.
func New(kv db.KVStore, opts ...ubjson.DecoderOption) *Store {
	return &Store{
		kv:         kv,
		serializer: serialization.NewSerializer(codec.NewUBJSONCodec(opts...)),
	}
}

func docKey(key string) []byte {
	return []byte(keyPrefix + key)
}

func seal(payload []byte) []byte {
	sum := blake2b.Sum256(payload)
	record := make([]byte, 0, checksumSize+len(payload))
	record = append(record, sum[:]...)
	return append(record, payload...)
}

func open(key string, record []byte) ([]byte, error) {
	if len(record) < checksumSize {
		return nil, fmt.Errorf("%w: record %q is %d bytes", ErrCorrupted, key, len(record))
	}
	sum := blake2b.Sum256(record[checksumSize:])
	if !bytes.Equal(sum[:], record[:checksumSize]) {
		return nil, fmt.Errorf("%w: record %q", ErrCorrupted, key)
	}
	return record[checksumSize:], nil
}

// Put encodes v as UBJSON and stores it under key.
func (s *Store) Put(key string, v any) error {
	if key == "" {
		return ErrEmptyKey
	}
	payload, err := s.serializer.Encode(v)
	if err != nil {
		return err
	}
	return s.putPayload(key, payload)
}

// PutRaw stores an already encoded document after checking it holds exactly
// one value.
func (s *Store) PutRaw(key string, payload []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	var v ubjson.Value
	if err := s.serializer.Decode(payload, &v); err != nil {
		return err
	}
	return s.putPayload(key, payload)
}

func (s *Store) putPayload(key string, payload []byte) error {
	if err := s.kv.Put(docKey(key), seal(payload)); err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}
	log.Store.Debug().Str("key", key).Int("bytes", len(payload)).Msg("stored document")
	return nil
}

// GetRaw returns the verified UBJSON payload stored under key.
func (s *Store) GetRaw(key string) ([]byte, error) {
	record, err := s.kv.Get(docKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", key, err)
	}
	payload, err := open(key, record)
	if err != nil {
		log.Store.Warn().Str("key", key).Msg("corrupted document")
		return nil, err
	}
	return payload, nil
}

// Get decodes the document stored under key into dst.
func (s *Store) Get(key string, dst any) error {
	payload, err := s.GetRaw(key)
	if err != nil {
		return err
	}
	return s.serializer.Decode(payload, dst)
}

// GetValue decodes the document stored under key into a Value.
func (s *Store) GetValue(key string) (ubjson.Value, error) {
	var v ubjson.Value
	err := s.Get(key, &v)
	return v, err
}

func (s *Store) Delete(key string) error {
	if err := s.kv.Delete(docKey(key)); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	log.Store.Debug().Str("key", key).Msg("deleted document")
	return nil
}

// Keys lists the stored document keys starting with prefix, in byte order.
func (s *Store) Keys(prefix string) ([]string, error) {
	start := docKey(prefix)
	iter, err := s.kv.NewIterator(start, db.PrefixEnd(start))
	if err != nil {
		return nil, err
	}
	defer iter.Close() //nolint:errcheck

	var keys []string
	for iter.Next() {
		keys = append(keys, strings.TrimPrefix(string(iter.Key()), keyPrefix))
	}
	return keys, nil
}

// PutBatch stores all docs atomically. Nothing is written if any document
// fails to encode.
func (s *Store) PutBatch(docs map[string]any) error {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		if k == "" {
			return ErrEmptyKey
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := s.kv.NewBatch()
	defer batch.Close() //nolint:errcheck

	for _, k := range keys {
		payload, err := s.serializer.Encode(docs[k])
		if err != nil {
			return fmt.Errorf("document %q: %w", k, err)
		}
		if err := batch.Put(docKey(k), seal(payload)); err != nil {
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	log.Store.Debug().Int("documents", len(keys)).Msg("committed batch")
	return nil
}

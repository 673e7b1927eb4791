//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mrarman0786/chat-app/domain"
)

const messageSequenceBandwidth = 64

type IMessageRepository interface {
	Append(draft domain.Draft) (uint64, error)
	ListRecent(limit, offset int) ([]domain.Message, error)
	Close() error
}

// MessageRepository is the append-only message store. Ids come from a
// Badger sequence and are monotonically increasing, so the zero-padded key
// order is both id order and time order; no separate index is needed.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

// NewMessageRepository acquires the id sequence unless the database is
// opened read-only (the viewer does that); a read-only repository can list
// but not append.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	repo := &MessageRepository{db: db, log: log}
	if db.Opts().ReadOnly {
		return repo, nil
	}
	seq, err := db.GetSequence([]byte("seq:message"), messageSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message id sequence: %w", err)
	}
	repo.seq = seq
	return repo, nil
}

// messageRecord is the on-disk shape, CBOR-encoded. Disambiguator protects
// against operator-level replays when records are exported and re-imported;
// it never leaves the storage layer.
type messageRecord struct {
	ID            uint64    `cbor:"id"`
	AuthorID      int64     `cbor:"author_id"`
	Author        string    `cbor:"author"`
	Body          string    `cbor:"body"`
	Lang          string    `cbor:"lang,omitempty"`
	At            time.Time `cbor:"at"`
	Disambiguator string    `cbor:"uid"`
}

// Append persists a draft and returns the assigned id. The sequence call is
// atomic per invocation; the id is durable before the caller may broadcast.
func (m *MessageRepository) Append(draft domain.Draft) (uint64, error) {
	if m.seq == nil {
		return 0, fmt.Errorf("message store is read-only")
	}
	next, err := m.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next message id: %w", err)
	}
	id := next + 1 // ids start at 1

	record := messageRecord{
		ID:            id,
		AuthorID:      draft.AuthorID,
		Author:        draft.Author,
		Body:          draft.Body,
		Lang:          draft.Lang,
		At:            draft.CreatedAt,
		Disambiguator: uuid.NewString(),
	}
	value, err := cbor.Marshal(record)
	if err != nil {
		return 0, err
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(id), value)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListRecent returns the most recent messages ordered by time ascending,
// skipping offset newest-first entries. It walks the keyspace in reverse
// (newest first) and flips the window before returning.
func (m *MessageRepository) ListRecent(limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var records []messageRecord
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// 0xFF sorts after every digit, so this seeks past the newest key.
		seekKey := append(append([]byte{}, prefix...), 0xFF)

		skipped := 0
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(records) == limit {
				break
			}
			var record messageRecord
			err := it.Item().Value(func(value []byte) error {
				return cbor.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse iteration collected newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return lo.Map(records, func(record messageRecord, _ int) domain.Message {
		return domain.Message{
			ID:        record.ID,
			AuthorID:  record.AuthorID,
			Author:    record.Author,
			Body:      record.Body,
			CreatedAt: record.At,
		}
	}), nil
}

// Close releases the unused part of the id lease. Ids may skip after a
// restart; they stay monotonic.
func (m *MessageRepository) Close() error {
	if m.seq == nil {
		return nil
	}
	return m.seq.Release()
}

// messageKey pads the id to 20 digits so lexicographic order matches
// numeric order for the whole uint64 range.
func messageKey(id uint64) []byte {
	return []byte(fmt.Sprintf("msg:%020d", id))
}

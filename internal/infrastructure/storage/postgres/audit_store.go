package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"minimart/internal/domain/audit"
)

const auditTable = "sys_audit"

// CompressionAlgo specifies the compression algorithm used for stored
// metadata payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditStore implements audit.Store. Metadata payloads above the
// threshold are zstd-compressed before writing; small entries stay as
// plain JSON so ad-hoc SQL against recent rows remains possible.
type AuditStore struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

var _ audit.Store = (*AuditStore)(nil)

// Append inserts one audit entry.
func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	raw, err := audit.EncodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	var (
		metadata   []byte
		compressed []byte
		algo       = CompressionNone
	)
	metadata = raw
	if len(raw) > s.compressThreshold {
		compressed = s.encoder.EncodeAll(raw, nil)
		metadata = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, action, entity_type, entity_id, actor_id, actor_name,
			metadata, metadata_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.Action, entry.EntityType, entry.EntityID,
		entry.ActorID, entry.ActorName,
		metadata, compressed, algo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first, decompressing and decoding the
// typed metadata payloads.
func (s *AuditStore) List(ctx context.Context, filter audit.ListFilter) ([]audit.Entry, error) {
	q := s.builder.Select(
		"id", "action", "entity_type", "entity_id", "actor_id", "actor_name",
		"metadata", "metadata_compressed", "compression_algo", "created_at",
	).From(auditTable)

	if filter.Action != nil {
		q = q.Where(squirrel.Eq{"action": *filter.Action})
	}
	if filter.EntityType != nil {
		q = q.Where(squirrel.Eq{"entity_type": *filter.EntityType})
	}
	if filter.ActorID != nil {
		q = q.Where(squirrel.Eq{"actor_id": *filter.ActorID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.To})
	}

	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := s.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			metadata   []byte
			compressed []byte
			algo       CompressionAlgo
		)
		if err := rows.Scan(
			&e.ID, &e.Action, &e.EntityType, &e.EntityID,
			&e.ActorID, &e.ActorName,
			&metadata, &compressed, &algo, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if algo == CompressionZstd && len(compressed) > 0 {
			metadata, err = s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress metadata: %w", err)
			}
		}
		if e.Metadata, err = audit.DecodeMetadata(metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"fuelbridge/internal/core/id"
	"fuelbridge/pkg/logger"
)

// CompressionAlgo specifies the compression algorithm used for payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Event is one reconciliation log entry: what happened to an invoice at a
// procurement stage, with the remote payload for operator diagnosis.
type Event struct {
	ID                id.ID           `db:"id"`
	InvoiceID         uuid.UUID       `db:"invoice_id"`
	Stage             string          `db:"stage"`
	Status            string          `db:"status"`
	Comment           string          `db:"comment"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// EventLog persists reconciliation events. ERP documents can be large, so
// payloads over the threshold are stored zstd-compressed.
//
// Writes are best-effort: the event log must never fail a business operation.
type EventLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewEventLog creates the event log service.
func NewEventLog(txManager *TxManager) (*EventLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &EventLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record appends an event. Failures are logged and swallowed.
func (l *EventLog) Record(ctx context.Context, invoiceID uuid.UUID, stage, status, comment string, payload []byte) {
	entry := Event{
		ID:              id.New(),
		InvoiceID:       invoiceID,
		Stage:           stage,
		Status:          status,
		Comment:         comment,
		Payload:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(entry.Payload) > l.compressThreshold {
		entry.PayloadCompressed = l.encoder.EncodeAll(entry.Payload, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO reconciliation_events (
			id, invoice_id, stage, status, comment,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := l.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		entry.ID, entry.InvoiceID, entry.Stage, entry.Status, entry.Comment,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		logger.Error(ctx, "event log write failed",
			"invoice_id", invoiceID, "stage", stage, "error", err)
	}
}

// History returns the newest events for an invoice, payloads decompressed.
func (l *EventLog) History(ctx context.Context, invoiceID uuid.UUID, limit int) ([]Event, error) {
	sql := `
		SELECT id, invoice_id, stage, status, comment,
			   payload, payload_compressed, compression_algo, created_at
		FROM reconciliation_events
		WHERE invoice_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := l.txManager.GetQuerier(ctx).Query(ctx, sql, invoiceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.ID, &e.InvoiceID, &e.Stage, &e.Status, &e.Comment,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.PayloadCompressed) > 0 {
			decompressed, err := l.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress payload: %w", err)
			}
			e.Payload = decompressed
			e.PayloadCompressed = nil
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

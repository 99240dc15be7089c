package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/clause"
	"github.com/yaehabs-creator/aaa-contracts-app-sub004/pkg/registry"
)

// timeLayout is RFC 3339 with fixed-width nanoseconds. Chunk rows are ordered
// by this column on load, and only a fixed-width rendering sorts
// lexicographically in time order (RFC3339Nano trims trailing zeros, which
// would sort ".5Z" after ".55Z").
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteContractStore implements ContractStore on SQLite.
type SQLiteContractStore struct {
	db *sql.DB
}

// NewSQLiteContractStore opens (or creates) the database at dbPath. Use
// ":memory:" for an in-memory database. Creates tables if they don't exist.
func NewSQLiteContractStore(dbPath string) (*SQLiteContractStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteContractStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteContractStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		min_confidence REAL NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS documents (
		contract_id TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT,
		doc_group TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (contract_id, id)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		clause_number TEXT NOT NULL,
		canonical_id TEXT NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		confidence REAL NOT NULL,
		page_number INTEGER,
		supersedes_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_contract ON chunks(contract_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_canonical ON chunks(contract_id, canonical_id);

	CREATE TABLE IF NOT EXISTS overrides (
		contract_id TEXT NOT NULL,
		overriding_document TEXT NOT NULL,
		overridden_document TEXT NOT NULL,
		override_type TEXT NOT NULL,
		affected_clauses TEXT,
		scope TEXT,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_contract ON overrides(contract_id);

	CREATE TABLE IF NOT EXISTS clause_references (
		contract_id TEXT NOT NULL,
		source_clause TEXT NOT NULL,
		target_clause TEXT NOT NULL,
		reference_type TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_references_contract ON clause_references(contract_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot replaces the stored rows of the snapshot's contract inside one
// transaction.
func (s *SQLiteContractStore) SaveSnapshot(ctx context.Context, snap *registry.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"contracts", "documents", "chunks", "overrides", "clause_references"} {
		column := "contract_id"
		if table == "contracts" {
			column = "id"
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column), snap.ContractID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO contracts (id, min_confidence) VALUES (?, ?)",
		snap.ContractID, snap.MinConfidence); err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}

	for _, doc := range snap.Documents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (contract_id, id, title, doc_group, sequence, status)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			snap.ContractID, doc.ID, doc.Title, string(doc.Group), doc.Sequence, string(doc.Status)); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	for _, chunk := range snap.Chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, contract_id, document_id, clause_number, canonical_id,
			 content, content_hash, confidence, page_number, supersedes_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.ContractID, chunk.DocumentID, chunk.ClauseNumber, string(chunk.CanonicalID),
			chunk.Content, chunk.ContentHash, chunk.Confidence, chunk.PageNumber,
			chunk.SupersedesID, chunk.CreatedAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}

	for i, o := range snap.Overrides {
		affected, err := json.Marshal(o.AffectedClauses)
		if err != nil {
			return fmt.Errorf("failed to encode affected clauses: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO overrides (contract_id, overriding_document, overridden_document,
			 override_type, affected_clauses, scope, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.ContractID, o.OverridingDocumentID, o.OverriddenDocumentID,
			string(o.Type), string(affected), o.Scope, i); err != nil {
			return fmt.Errorf("failed to insert override: %w", err)
		}
	}

	for i, ref := range snap.References {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clause_references (contract_id, source_clause, target_clause, reference_type, position)
			 VALUES (?, ?, ?, ?, ?)`,
			snap.ContractID, string(ref.SourceClause), string(ref.TargetClause), string(ref.Type), i); err != nil {
			return fmt.Errorf("failed to insert reference: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reconstructs the stored snapshot of one contract.
func (s *SQLiteContractStore) LoadSnapshot(ctx context.Context, contractID string) (*registry.Snapshot, error) {
	snap := &registry.Snapshot{ContractID: contractID}

	err := s.db.QueryRowContext(ctx,
		"SELECT min_confidence FROM contracts WHERE id = ?", contractID).Scan(&snap.MinConfidence)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, doc_group, sequence, status FROM documents
		 WHERE contract_id = ? ORDER BY doc_group, sequence`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var doc registry.Document
		var group, status string
		if err := rows.Scan(&doc.ID, &doc.Title, &group, &doc.Sequence, &status); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Group = registry.Group(group)
		doc.Status = registry.DocumentStatus(status)
		snap.Documents = append(snap.Documents, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, clause_number, canonical_id, content, content_hash,
		 confidence, page_number, supersedes_id, created_at
		 FROM chunks WHERE contract_id = ? ORDER BY created_at, id`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer chunkRows.Close()
	for chunkRows.Next() {
		chunk := registry.DocumentChunk{ContractID: contractID}
		var canonical, createdAt string
		if err := chunkRows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ClauseNumber, &canonical,
			&chunk.Content, &chunk.ContentHash, &chunk.Confidence, &chunk.PageNumber,
			&chunk.SupersedesID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.CanonicalID = clause.ID(canonical)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			chunk.CreatedAt = ts
		}
		snap.Chunks = append(snap.Chunks, &chunk)
	}
	if err := chunkRows.Err(); err != nil {
		return nil, err
	}

	overrideRows, err := s.db.QueryContext(ctx,
		`SELECT overriding_document, overridden_document, override_type, affected_clauses, scope
		 FROM overrides WHERE contract_id = ? ORDER BY position`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	defer overrideRows.Close()
	for overrideRows.Next() {
		var o registry.DocumentOverride
		var typ, affected string
		if err := overrideRows.Scan(&o.OverridingDocumentID, &o.OverriddenDocumentID,
			&typ, &affected, &o.Scope); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.Type = registry.OverrideType(typ)
		if affected != "" {
			if err := json.Unmarshal([]byte(affected), &o.AffectedClauses); err != nil {
				return nil, fmt.Errorf("failed to decode affected clauses: %w", err)
			}
		}
		snap.Overrides = append(snap.Overrides, &o)
	}
	if err := overrideRows.Err(); err != nil {
		return nil, err
	}

	refRows, err := s.db.QueryContext(ctx,
		`SELECT source_clause, target_clause, reference_type
		 FROM clause_references WHERE contract_id = ? ORDER BY position`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}
	defer refRows.Close()
	for refRows.Next() {
		var ref registry.ClauseReference
		var source, target, typ string
		if err := refRows.Scan(&source, &target, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		ref.SourceClause = clause.ID(source)
		ref.TargetClause = clause.ID(target)
		ref.Type = registry.ReferenceType(typ)
		snap.References = append(snap.References, &ref)
	}
	if err := refRows.Err(); err != nil {
		return nil, err
	}

	snap.Rebuild()
	return snap, nil
}

// ListContracts returns the stored contract IDs.
func (s *SQLiteContractStore) ListContracts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM contracts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLiteContractStore) Close() error {
	return s.db.Close()
}

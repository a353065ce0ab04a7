package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for documents, tags, and the
// search index.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	// Cascading deletes depend on foreign key enforcement; carrying the
	// pragma in the DSN applies it to every connection the pool opens, not
	// just the current one.
	const fkParam = "?_pragma=foreign_keys(1)"

	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:" + fkParam
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "docstash.db") + fkParam
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Documents ---

// CreateDocument inserts the document, its completed processing status, and
// its search index postings in a single transaction. Either all three become
// visible together or none do.
func (s *Store) CreateDocument(doc Document, terms []TermWeight) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := tx.Exec(`
		INSERT INTO documents (filename, file_path, file_size, page_count, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Filename, doc.FilePath, doc.FileSize, doc.PageCount, doc.Content,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO processing_statuses (document_id, status, processed_at)
		VALUES (?, ?, ?)`,
		id, StatusCompleted, now.Format(time.RFC3339Nano),
	); err != nil {
		return 0, fmt.Errorf("inserting processing status: %w", err)
	}

	for _, t := range terms {
		if _, err := tx.Exec(`
			INSERT INTO search_terms (document_id, term, weight)
			VALUES (?, ?, ?)`,
			id, t.Term, t.Weight,
		); err != nil {
			return 0, fmt.Errorf("inserting search term %q: %w", t.Term, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing document: %w", err)
	}
	return id, nil
}

// GetDocument returns one document with its extracted content.
func (s *Store) GetDocument(id int64) (Document, error) {
	var d Document
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, filename, file_path, file_size, page_count, content, created_at
		FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Filename, &d.FilePath, &d.FileSize, &d.PageCount, &d.Content, &createdAt)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return Document{}, err
	}
	return d, nil
}

// GetDocumentStatus returns the processing status string for a document, or
// "unknown" when no status row exists.
func (s *Store) GetDocumentStatus(id int64) (string, error) {
	var status string
	err := s.db.QueryRow(`SELECT status FROM processing_statuses WHERE document_id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return StatusUnknown, nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// DeleteDocument removes the document row in one transaction; the processing
// status, tag associations, and search postings go with it via cascade. It
// returns the stored file path so the caller can remove the physical file
// after the commit.
func (s *Store) DeleteDocument(id int64) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var filePath string
	err = tx.QueryRow(`SELECT file_path FROM documents WHERE id = ?`, id).Scan(&filePath)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("deleting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing delete: %w", err)
	}
	return filePath, nil
}

// ListDocuments returns one page of document summaries ordered by creation
// time descending, plus the total count. Page is 1-based. A tagID of 0 means
// no tag filter.
func (s *Store) ListDocuments(page, pageSize int, tagID int64) ([]DocumentSummary, int, error) {
	countQuery := `SELECT COUNT(*) FROM documents d`
	listQuery := `
		SELECT d.id, d.filename, d.file_size, d.page_count, COALESCE(ps.status, ?), d.created_at
		FROM documents d
		LEFT JOIN processing_statuses ps ON ps.document_id = d.id`

	var countArgs, listArgs []any
	listArgs = append(listArgs, StatusUnknown)
	if tagID != 0 {
		filter := ` JOIN document_tags dt ON dt.document_id = d.id AND dt.tag_id = ?`
		countQuery = countQuery + filter
		listQuery = listQuery + filter
		countArgs = append(countArgs, tagID)
		listArgs = append(listArgs, tagID)
	}

	var total int
	if err := s.db.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}

	listQuery += ` ORDER BY d.created_at DESC, d.id DESC LIMIT ? OFFSET ?`
	listArgs = append(listArgs, pageSize, (page-1)*pageSize)

	rows, err := s.db.Query(listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var results []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Filename, &d.FileSize, &d.PageCount, &d.Status, &createdAt); err != nil {
			return nil, 0, err
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, 0, err
		}
		results = append(results, d)
	}
	return results, total, rows.Err()
}

// ListFilePaths returns the on-disk path of every stored document.
func (s *Store) ListFilePaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT file_path FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// --- Search ---

// SearchByTerms ranks documents whose index entries match any of the given
// terms. The rank of a document is the sum of its matched posting weights;
// ties break by creation time descending.
func (s *Store) SearchByTerms(terms []string, limit int) ([]SearchHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat(",?", len(terms)-1)
	query := `
		SELECT d.id, d.filename, d.content, SUM(st.weight) AS rank, d.created_at
		FROM search_terms st
		JOIN documents d ON d.id = st.document_id
		WHERE st.term IN (?` + placeholders + `)
		GROUP BY d.id
		ORDER BY rank DESC, d.created_at DESC, d.id DESC
		LIMIT ?`

	args := make([]any, 0, len(terms)+1)
	for _, t := range terms {
		args = append(args, t)
	}
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var createdAt string
		if err := rows.Scan(&h.ID, &h.Filename, &h.Content, &h.Rank, &createdAt); err != nil {
			return nil, err
		}
		if h.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// --- Tags ---

// CreateTag inserts a tag. A name collision (case-insensitive, enforced by
// the store's unique index) returns ErrTagExists, so two racing creates
// resolve to exactly one row.
func (s *Store) CreateTag(name string) (Tag, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO tags (name, created_at) VALUES (?, ?)`,
		name, now.Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return Tag{}, ErrTagExists
	}
	if err != nil {
		return Tag{}, fmt.Errorf("inserting tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tag{}, fmt.Errorf("reading tag id: %w", err)
	}
	return Tag{ID: id, Name: name, CreatedAt: now}, nil
}

// GetTag returns one tag by id.
func (s *Store) GetTag(id int64) (Tag, error) {
	var t Tag
	var createdAt string
	err := s.db.QueryRow(`SELECT id, name, created_at FROM tags WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &createdAt)
	if err == sql.ErrNoRows {
		return Tag{}, ErrNotFound
	}
	if err != nil {
		return Tag{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return Tag{}, err
	}
	return t, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags() ([]Tag, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteTag removes a tag; its document associations cascade away with it.
// Deleting an absent tag is a no-op, so repeated deletes of the same id all
// succeed.
func (s *Store) DeleteTag(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tags WHERE id = ?`, id)
	return err
}

// AttachTag associates a tag with a document. Attaching an already-attached
// pair is a no-op.
func (s *Store) AttachTag(documentID, tagID int64) error {
	if err := s.requireDocumentAndTag(documentID, tagID); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO document_tags (document_id, tag_id) VALUES (?, ?)`,
		documentID, tagID)
	return err
}

// DetachTag removes a document-tag association. Detaching an absent pair is
// a no-op.
func (s *Store) DetachTag(documentID, tagID int64) error {
	if err := s.requireDocumentAndTag(documentID, tagID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM document_tags WHERE document_id = ? AND tag_id = ?`,
		documentID, tagID)
	return err
}

// ListDocumentTags returns the tags attached to a document, ordered by name.
func (s *Store) ListDocumentTags(documentID int64) ([]Tag, error) {
	if err := s.requireDocument(documentID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = ?
		ORDER BY t.name ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) requireDocument(id int64) error {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM documents WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	return err
}

func (s *Store) requireDocumentAndTag(documentID, tagID int64) error {
	if err := s.requireDocument(documentID); err != nil {
		return err
	}
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("tag %d: %w", tagID, ErrNotFound)
	}
	return err
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", v, err)
	}
	return t, nil
}

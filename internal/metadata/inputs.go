package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const inputColumns = `id, definition_id, uri, checksum, start_time, end_time, last_modified, status`

// InputFiles lists valid input files for the given definitions, ordered by
// start time. With no definition IDs every input file is returned whatever
// its status.
func (s *Store) InputFiles(ctx context.Context, definitionIDs ...string) ([]InputFile, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + inputColumns + ` FROM input_files`
	args := make([]any, 0, len(definitionIDs)+1)
	if len(definitionIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(definitionIDs)), ",")
		query += ` WHERE status = ? AND definition_id IN (` + placeholders + `)`
		args = append(args, StatusValid)
		for _, id := range definitionIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY start_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list input files: %w", err)
	}
	defer rows.Close()

	var files []InputFile
	for rows.Next() {
		file, err := scanInputFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate input files: %w", err)
	}
	return files, nil
}

// InputFile loads one input file by ID.
func (s *Store) InputFile(ctx context.Context, id string) (*InputFile, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+inputColumns+` FROM input_files WHERE id = ?`, id)
	file, err := scanInputFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// InputFileExists reports whether an input file with id is stored.
func (s *Store) InputFileExists(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM input_files WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check input file %q: %w", id, err)
	}
	return count > 0, nil
}

// SaveInputFile inserts or replaces an input file.
func (s *Store) SaveInputFile(ctx context.Context, file InputFile) error {
	if strings.TrimSpace(file.ID) == "" {
		return errors.New("input file id is required")
	}
	if file.Status == "" {
		file.Status = StatusValid
	}
	_, err := s.exec(ctx,
		`INSERT INTO input_files (`+inputColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET definition_id = excluded.definition_id, uri = excluded.uri,
		 checksum = excluded.checksum, start_time = excluded.start_time, end_time = excluded.end_time,
		 last_modified = excluded.last_modified, status = excluded.status`,
		file.ID, file.DefinitionID, file.URI, nullableString(file.Checksum),
		formatTime(file.Start), formatTime(file.End), formatTime(file.LastModified), file.Status,
	)
	if err != nil {
		return fmt.Errorf("save input file %q: %w", file.ID, err)
	}
	return nil
}

// DeleteInputFile removes an input file. Deleting a missing ID is not an error.
func (s *Store) DeleteInputFile(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM input_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete input file %q: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInputFile(row rowScanner) (InputFile, error) {
	var (
		file     InputFile
		checksum sql.NullString
		start    sql.NullString
		end      sql.NullString
		modified sql.NullString
	)
	if err := row.Scan(&file.ID, &file.DefinitionID, &file.URI, &checksum, &start, &end, &modified, &file.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InputFile{}, err
		}
		return InputFile{}, fmt.Errorf("scan input file: %w", err)
	}
	file.Checksum = checksum.String
	var err error
	if file.Start, err = parseTime(start); err != nil {
		return InputFile{}, fmt.Errorf("input file %q start: %w", file.ID, err)
	}
	if file.End, err = parseTime(end); err != nil {
		return InputFile{}, fmt.Errorf("input file %q end: %w", file.ID, err)
	}
	if file.LastModified, err = parseTime(modified); err != nil {
		return InputFile{}, fmt.Errorf("input file %q last_modified: %w", file.ID, err)
	}
	return file, nil
}

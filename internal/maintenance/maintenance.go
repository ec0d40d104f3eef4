package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ncanimate/internal/logging"
	"ncanimate/internal/metadata"
	"ncanimate/internal/services"
	"ncanimate/internal/textutil"
)

// Reserved task IDs that run a maintenance operation instead of a
// generation.
const (
	FixProductRecordIDs   = "__FIX_NCANIMATE_PRODUCT_METADATA_ID__"
	FixDownloadInputIDs   = "__FIX_DOWNLOAD_METADATA_ID__"
	DeleteDuplicateInputs = "__FIX_METADATA_DUPLICATE_ID__"
	LockOldInputIDs       = "__LOCK_OLD_EREEFS_METADATA_IDS__"
)

// downloadDefinitionPrefix selects the input files FixDownloadInputIDs
// touches.
const downloadDefinitionPrefix = "downloads__"

// LockedLastModified is far enough in the future that a locked input file
// is never seen as newer than its replacement.
var LockedLastModified = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)

// IsSentinel reports whether taskID names a maintenance operation.
func IsSentinel(taskID string) bool {
	switch taskID {
	case FixProductRecordIDs, FixDownloadInputIDs, DeleteDuplicateInputs, LockOldInputIDs:
		return true
	}
	return false
}

// Store is the metadata surface maintenance needs.
type Store interface {
	ProductRecords(ctx context.Context, definitionID string) ([]metadata.ProductRecord, error)
	ProductRecordExists(ctx context.Context, id string) (bool, error)
	SaveProductRecord(ctx context.Context, record metadata.ProductRecord) error
	DeleteProductRecord(ctx context.Context, id string) error
	InputFiles(ctx context.Context, definitionIDs ...string) ([]metadata.InputFile, error)
	InputFileExists(ctx context.Context, id string) (bool, error)
	SaveInputFile(ctx context.Context, file metadata.InputFile) error
	DeleteInputFile(ctx context.Context, id string) error
}

// Counts accumulates what one operation did. In dry-run mode the counts
// describe what would have happened.
type Counts struct {
	Scanned int
	Renamed int
	Deleted int
	Locked  int
	Skipped int
}

func (c Counts) String() string {
	return fmt.Sprintf("scanned=%d renamed=%d deleted=%d locked=%d skipped=%d", c.Scanned, c.Renamed, c.Deleted, c.Locked, c.Skipped)
}

// Maintainer repairs metadata IDs written before safe IDs were enforced.
type Maintainer struct {
	store  Store
	dryRun bool
	logger *slog.Logger
}

// New constructs a Maintainer. With dryRun set nothing is written.
func New(store Store, dryRun bool, logger *slog.Logger) *Maintainer {
	return &Maintainer{store: store, dryRun: dryRun, logger: logging.NewComponentLogger(logger, "maintenance")}
}

// Run executes the operation named by sentinel.
func (m *Maintainer) Run(ctx context.Context, sentinel string) (Counts, error) {
	m.logger.Info("maintenance operation started",
		logging.String("operation", sentinel),
		logging.Bool("dry_run", m.dryRun),
	)
	var (
		counts Counts
		err    error
	)
	switch sentinel {
	case FixProductRecordIDs:
		counts, err = m.FixProductRecordIDs(ctx)
	case FixDownloadInputIDs:
		counts, err = m.FixDownloadInputIDs(ctx)
	case DeleteDuplicateInputs:
		counts, err = m.DeleteDuplicateInputs(ctx)
	case LockOldInputIDs:
		counts, err = m.LockOldInputIDs(ctx)
	default:
		return Counts{}, services.Wrap(services.ErrConfiguration, "maintenance", "run", fmt.Sprintf("unknown operation %q", sentinel), nil)
	}
	if err != nil {
		return counts, err
	}
	m.logger.Info("maintenance operation finished",
		logging.String("operation", sentinel),
		logging.Int("scanned", counts.Scanned),
		logging.Int("renamed", counts.Renamed),
		logging.Int("deleted", counts.Deleted),
		logging.Int("locked", counts.Locked),
		logging.Int("skipped", counts.Skipped),
	)
	return counts, nil
}

// FixProductRecordIDs moves every product record with an unsafe ID to its
// safe ID. The unsafe record is dropped even when the safe one already
// exists.
func (m *Maintainer) FixProductRecordIDs(ctx context.Context) (Counts, error) {
	var counts Counts
	records, err := m.store.ProductRecords(ctx, "")
	if err != nil {
		return counts, fmt.Errorf("list product records: %w", err)
	}
	for _, record := range records {
		counts.Scanned++
		original := record.ID
		fixed := textutil.SafeID(original)
		if fixed == original {
			continue
		}
		exists, err := m.store.ProductRecordExists(ctx, fixed)
		if err != nil {
			return counts, fmt.Errorf("check product record %q: %w", fixed, err)
		}
		if exists {
			m.logger.Info("safe product record already exists", logging.String("id", original), logging.String("safe_id", fixed))
			counts.Skipped++
		} else {
			m.logger.Info("renaming product record", logging.String("id", original), logging.String("safe_id", fixed))
			record.ID = fixed
			if !m.dryRun {
				if err := m.store.SaveProductRecord(ctx, record); err != nil {
					return counts, err
				}
			}
			counts.Renamed++
		}
		if !m.dryRun {
			if err := m.store.DeleteProductRecord(ctx, original); err != nil {
				return counts, err
			}
		}
		counts.Deleted++
	}
	return counts, nil
}

// FixDownloadInputIDs does what FixProductRecordIDs does for input files of
// download definitions.
func (m *Maintainer) FixDownloadInputIDs(ctx context.Context) (Counts, error) {
	var counts Counts
	files, err := m.store.InputFiles(ctx)
	if err != nil {
		return counts, fmt.Errorf("list input files: %w", err)
	}
	for _, file := range files {
		if !strings.HasPrefix(file.DefinitionID, downloadDefinitionPrefix) {
			continue
		}
		counts.Scanned++
		original := file.ID
		fixed := textutil.SafeID(original)
		if fixed == original {
			continue
		}
		exists, err := m.store.InputFileExists(ctx, fixed)
		if err != nil {
			return counts, fmt.Errorf("check input file %q: %w", fixed, err)
		}
		if exists {
			m.logger.Info("safe input file already exists", logging.String("id", original), logging.String("safe_id", fixed))
			counts.Skipped++
		} else {
			m.logger.Info("renaming input file", logging.String("id", original), logging.String("safe_id", fixed))
			file.ID = fixed
			if !m.dryRun {
				if err := m.store.SaveInputFile(ctx, file); err != nil {
					return counts, err
				}
			}
			counts.Renamed++
		}
		if !m.dryRun {
			if err := m.store.DeleteInputFile(ctx, original); err != nil {
				return counts, err
			}
		}
		counts.Deleted++
	}
	return counts, nil
}

// DeleteDuplicateInputs removes input files with an unsafe ID whose safe
// twin exists.
func (m *Maintainer) DeleteDuplicateInputs(ctx context.Context) (Counts, error) {
	var counts Counts
	files, err := m.store.InputFiles(ctx)
	if err != nil {
		return counts, fmt.Errorf("list input files: %w", err)
	}
	for _, file := range files {
		counts.Scanned++
		fixed := textutil.SafeID(file.ID)
		if fixed == file.ID {
			continue
		}
		exists, err := m.store.InputFileExists(ctx, fixed)
		if err != nil {
			return counts, fmt.Errorf("check input file %q: %w", fixed, err)
		}
		if !exists {
			counts.Skipped++
			continue
		}
		m.logger.Info("deleting duplicated input file", logging.String("id", file.ID), logging.String("safe_id", fixed))
		if !m.dryRun {
			if err := m.store.DeleteInputFile(ctx, file.ID); err != nil {
				return counts, err
			}
		}
		counts.Deleted++
	}
	return counts, nil
}

// LockOldInputIDs keeps the original unsafe-ID input files and drops their
// safe-ID duplicates, then pushes the originals' last modified time to
// LockedLastModified so a re-download cannot duplicate them again.
func (m *Maintainer) LockOldInputIDs(ctx context.Context) (Counts, error) {
	var counts Counts
	files, err := m.store.InputFiles(ctx)
	if err != nil {
		return counts, fmt.Errorf("list input files: %w", err)
	}
	for _, file := range files {
		counts.Scanned++
		fixed := textutil.SafeID(file.ID)
		if fixed == file.ID {
			continue
		}
		exists, err := m.store.InputFileExists(ctx, fixed)
		if err != nil {
			return counts, fmt.Errorf("check input file %q: %w", fixed, err)
		}
		if exists {
			m.logger.Info("deleting duplicate of old input file", logging.String("id", fixed), logging.String("original_id", file.ID))
			if !m.dryRun {
				if err := m.store.DeleteInputFile(ctx, fixed); err != nil {
					return counts, err
				}
			}
			counts.Deleted++
		}
		if file.LastModified.Equal(LockedLastModified) {
			continue
		}
		file.LastModified = LockedLastModified
		if !m.dryRun {
			if err := m.store.SaveInputFile(ctx, file); err != nil {
				return counts, err
			}
		}
		counts.Locked++
	}
	return counts, nil
}

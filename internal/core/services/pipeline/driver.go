// Package pipeline drives the CSV normalization run: reference data is
// loaded once, every attribute row is dispatched to its field normalizer,
// and the full output is sorted before writing.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/core/services/gazetteer"
	"github.com/openlistings/listings-refinery/internal/core/services/normalize"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
	"github.com/openlistings/listings-refinery/internal/infrastructure/parsers"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
	pkgerrors "github.com/openlistings/listings-refinery/internal/pkg/errors"
)

// State names the driver's execution phases
type State string

const (
	StateLoadReferenceData State = "LOAD_REFERENCE_DATA"
	StateStreamNormalize   State = "STREAM_NORMALIZE"
	StateFinalSort         State = "FINAL_SORT"
	StateWriteOutput       State = "WRITE_OUTPUT"
	StateDone              State = "DONE"
	StateAbort             State = "ABORT"
)

// Result summarizes one normalization run
type Result struct {
	TotalRows      int
	SkippedRows    int
	NormalizedRows int
	FallbackHits   int
}

// Driver executes the normalization state machine over one input file
type Driver struct {
	cfg     *config.Config
	loader  *gazetteer.Loader
	factory *parsers.ParserFactory
	state   State
	logger  *slog.Logger
}

// NewDriver creates a Driver
func NewDriver(cfg *config.Config, loader *gazetteer.Loader, factory *parsers.ParserFactory, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = parsers.NewParserFactory(nil)
	}
	return &Driver{
		cfg:     cfg,
		loader:  loader,
		factory: factory,
		state:   StateLoadReferenceData,
		logger:  logger,
	}
}

// State returns the driver's current state
func (d *Driver) State() State {
	return d.state
}

// Run executes LOAD_REFERENCE_DATA → STREAM_NORMALIZE → FINAL_SORT →
// WRITE_OUTPUT. Structural failures (missing input, missing header,
// unavailable gazetteer) abort; malformed rows are skipped and counted.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	d.state = StateLoadReferenceData
	d.logger.Info("loading reference data", slog.String("state", string(d.state)))

	gaz, err := d.loader.Load(ctx)
	if err != nil {
		return d.abort(err)
	}
	normalizer := normalize.NewFieldNormalizer(gaz, streettype.New(), d.cfg.GazetteerMissMode, d.logger)

	d.state = StateStreamNormalize
	parsed, err := d.factory.ParseFile(ctx, d.cfg.InputPath)
	if err != nil {
		return d.abort(err)
	}
	d.logger.Info("input parsed",
		slog.String("input", d.cfg.InputPath),
		slog.Int("total_rows", parsed.TotalRows),
		slog.Int("skipped_rows", parsed.SkippedRows))

	rows, fallbackHits, err := d.normalizeAll(ctx, normalizer, parsed.Rows)
	if err != nil {
		return d.abort(err)
	}

	d.state = StateFinalSort
	SortRows(rows)

	d.state = StateWriteOutput
	if err := WriteRows(d.cfg.OutputPath, rows); err != nil {
		return d.abort(err)
	}

	d.state = StateDone
	result := &Result{
		TotalRows:      parsed.TotalRows,
		SkippedRows:    parsed.SkippedRows,
		NormalizedRows: len(rows),
		FallbackHits:   fallbackHits,
	}
	d.logger.Info("normalization run complete",
		slog.Int("rows_written", result.NormalizedRows),
		slog.Int("rows_skipped", result.SkippedRows),
		slog.Int("address_fallback_hits", result.FallbackHits))
	return result, nil
}

func (d *Driver) abort(err error) (*Result, error) {
	d.state = StateAbort
	d.logger.Error("pipeline aborted",
		slog.String("state", string(StateAbort)),
		slog.Any("error", err))
	return nil, err
}

// normalizeAll fans normalization out per listing group. Rows are indexed
// by listing id up front so the description fallback is a map lookup, not a
// rewind-and-rescan of the input stream.
func (d *Driver) normalizeAll(ctx context.Context, n *normalize.FieldNormalizer, rows []domain.RawAttributeRow) ([]domain.RawAttributeRow, int, error) {
	byListing := make(map[string][]int)
	order := make([]string, 0)
	for i, row := range rows {
		if _, seen := byListing[row.ListingID]; !seen {
			order = append(order, row.ListingID)
		}
		byListing[row.ListingID] = append(byListing[row.ListingID], i)
	}

	out := make([]domain.RawAttributeRow, len(rows))
	fallbacks := make([]int, len(order))

	g, gctx := errgroup.WithContext(ctx)
	limit := d.cfg.WorkerConcurrency
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)

	for gi, listingID := range order {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			indexes := byListing[listingID]
			group := groupOf(rows, indexes)
			for _, i := range indexes {
				out[i] = d.normalizeRow(n, rows[i], group, &fallbacks[gi])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	totalFallbacks := 0
	for _, f := range fallbacks {
		totalFallbacks += f
	}
	return out, totalFallbacks, nil
}

// groupOf assembles the sibling-field lookup for one listing
func groupOf(rows []domain.RawAttributeRow, indexes []int) *domain.ListingGroup {
	groupRows := make([]domain.RawAttributeRow, 0, len(indexes))
	for _, i := range indexes {
		groupRows = append(groupRows, rows[i])
	}
	if len(groupRows) == 0 {
		return &domain.ListingGroup{Fields: map[string]string{}}
	}
	return domain.NewListingGroup(groupRows[0].ListingID, groupRows)
}

// normalizeRow dispatches one attribute row to the normalizer for its field
// class. Rows are written through unconditionally, including empty results.
func (d *Driver) normalizeRow(n *normalize.FieldNormalizer, row domain.RawAttributeRow, group *domain.ListingGroup, fallbackHits *int) domain.RawAttributeRow {
	switch row.FieldName {
	case domain.FieldTown:
		row.FieldValue = n.Suburb(row.FieldValue)
	case domain.FieldAddress:
		normalized := n.Address(row.FieldValue)
		if normalized == "" {
			if recovered := n.AddressFromDescription(group.Field(domain.FieldFullDesc)); recovered != "" {
				normalized = recovered
				*fallbackHits++
			} else {
				d.logger.Debug("address unrecoverable from description",
					slog.String("listing_id", row.ListingID),
					slog.Any("error", pkgerrors.FieldUnresolved(row.ListingID, domain.FieldAddress,
						"no address pattern in description")))
			}
		}
		row.FieldValue = normalized
	case domain.FieldFullDesc:
		row.FieldValue = n.Description(row.FieldValue)
	case domain.FieldContact:
		row.FieldValue = n.Contact(row.FieldValue)
	case domain.FieldFeatures:
		row.FieldValue = n.Features(row.FieldValue)
	}
	return row
}

// SortRows performs the final stable sort by (listing_id, field_name),
// lexicographic ascending. This pass, not write order, is the output
// ordering guarantee.
func SortRows(rows []domain.RawAttributeRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ListingID != rows[j].ListingID {
			return rows[i].ListingID < rows[j].ListingID
		}
		return rows[i].FieldName < rows[j].FieldName
	})
}

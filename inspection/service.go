/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package inspection manages inspection records (sanitation, area monitoring and kliping checks).
package inspection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/inspecta/inspecta/audit"
	"github.com/inspecta/inspecta/backend"
	"github.com/inspecta/inspecta/masterdata"
)

// Store persists records. It's implemented by *backend.Client.
type Store interface {
	Select(ctx context.Context, table string, q backend.Query, dst interface{}) (int, error)
	SelectOne(ctx context.Context, table string, filters []backend.Filter, dst interface{}) error
	Insert(ctx context.Context, table string, row interface{}, dst interface{}) error
	Update(ctx context.Context, table string, filters []backend.Filter, patch interface{}, dst interface{}) error
	Delete(ctx context.Context, table string, filters []backend.Filter) (int, error)
}

// MasterData resolves plants and lines. It's implemented by *masterdata.Service.
type MasterData interface {
	Plant(ctx context.Context, code string) (masterdata.Plant, error)
	Line(ctx context.Context, plant, code string) (masterdata.Line, error)
}

// Auditor records changes. It's implemented by *audit.Writer.
type Auditor interface {
	Write(ctx context.Context, entry audit.Entry) error
}

// Service provides operations on inspection records.
type Service struct {
	cfg        *Config
	store      Store
	masterData MasterData
	auditor    Auditor
	now        func() time.Time
}

// NewService creates a new Service.
func NewService(cfg *Config, store Store, masterData MasterData, auditor Auditor) *Service {
	return &Service{cfg: cfg, store: store, masterData: masterData, auditor: auditor, now: time.Now}
}

// List returns a page of records of the kind matching the filter, newest first.
func (s *Service) List(ctx context.Context, kind Kind, filter Filter) (Page, error) {
	table, err := s.table(kind)
	if err != nil {
		return Page{}, err
	}
	if filter, err = s.normalizeFilter(filter); err != nil {
		return Page{}, err
	}

	q := backend.Query{
		Order:  []string{"inspected_at.desc", "id.desc"},
		Offset: (filter.Page - 1) * filter.PageSize,
		Limit:  filter.PageSize,
		Count:  true,
	}
	if filter.Plant != "" {
		q.Filters = append(q.Filters, backend.Eq("plant", filter.Plant))
	}
	if filter.Line != "" {
		q.Filters = append(q.Filters, backend.Eq("line", filter.Line))
	}
	if filter.From != "" {
		q.Filters = append(q.Filters, backend.Gte("inspected_at", filter.From))
	}
	if filter.To != "" {
		q.Filters = append(q.Filters, backend.Lte("inspected_at", filter.To))
	}

	page := Page{Items: []Record{}, Page: filter.Page, PageSize: filter.PageSize}
	if page.Total, err = s.store.Select(ctx, table, q, &page.Items); err != nil {
		if backend.IsStatus(err, http.StatusRequestedRangeNotSatisfiable) {
			// The page is past the last record.
			return Page{Items: []Record{}, Page: filter.Page, PageSize: filter.PageSize, Total: -1}, nil
		}
		return Page{}, fmt.Errorf("list %s records: %w", kind, err)
	}
	for i := range page.Items {
		page.Items[i].Kind = kind
	}
	return page, nil
}

// Get returns the record of the kind with the given id.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Record, error) {
	table, err := s.table(kind)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err = s.store.SelectOne(ctx, table, idFilter(id), &rec); err != nil {
		if errors.Is(err, backend.ErrNoRows) {
			return Record{}, fmt.Errorf("%s record %d: %w", kind, id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("get %s record %d: %w", kind, id, err)
	}
	rec.Kind = kind
	return rec, nil
}

// Create validates the input and stores a new record.
func (s *Service) Create(ctx context.Context, kind Kind, in Input) (Record, error) {
	table, err := s.table(kind)
	if err != nil {
		return Record{}, err
	}
	in = in.normalize()
	if err = s.validate(ctx, in); err != nil {
		return Record{}, err
	}

	var created []Record
	if err = s.store.Insert(ctx, table, in, &created); err != nil {
		return Record{}, fmt.Errorf("create %s record: %w", kind, err)
	}
	if len(created) == 0 {
		return Record{}, fmt.Errorf("create %s record: backend returned no rows", kind)
	}
	rec := created[0]
	rec.Kind = kind
	s.audit(ctx, audit.ActionCreate, table, rec.ID, map[string]interface{}{"plant": rec.Plant, "line": rec.Line})
	return rec, nil
}

// Update applies the patch to the record. The resulting record is validated as a whole.
func (s *Service) Update(ctx context.Context, kind Kind, id int64, patch Patch) (Record, error) {
	table, err := s.table(kind)
	if err != nil {
		return Record{}, err
	}
	existing, err := s.Get(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}
	if patch.IsEmpty() {
		return existing, nil
	}
	merged := patch.applyTo(existing.input()).normalize()
	if err = s.validate(ctx, merged); err != nil {
		return Record{}, err
	}

	row := struct {
		Patch
		UpdatedAt time.Time `json:"updated_at"`
	}{Patch: patch, UpdatedAt: s.now().UTC()}
	var updated []Record
	if err = s.store.Update(ctx, table, idFilter(id), row, &updated); err != nil {
		return Record{}, fmt.Errorf("update %s record %d: %w", kind, id, err)
	}
	if len(updated) == 0 {
		// Deleted concurrently.
		return Record{}, fmt.Errorf("%s record %d: %w", kind, id, ErrNotFound)
	}
	rec := updated[0]
	rec.Kind = kind
	s.audit(ctx, audit.ActionUpdate, table, id, map[string]interface{}{"fields": patchedFields(patch)})
	return rec, nil
}

// Delete removes the record.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	table, err := s.table(kind)
	if err != nil {
		return err
	}
	deleted, err := s.store.Delete(ctx, table, idFilter(id))
	if err != nil {
		return fmt.Errorf("delete %s record %d: %w", kind, id, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%s record %d: %w", kind, id, ErrNotFound)
	}
	s.audit(ctx, audit.ActionDelete, table, id, nil)
	return nil
}

func (s *Service) table(kind Kind) (string, error) {
	if _, ok := DefaultTables[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.cfg.Table(kind), nil
}

func (s *Service) validate(ctx context.Context, in Input) error {
	verr := in.validateFields(s.cfg.MaxPhotos)
	if in.Plant == "" {
		return verr.errOrNil()
	}
	if _, err := s.masterData.Plant(ctx, in.Plant); err != nil {
		if !errors.Is(err, masterdata.ErrNotFound) {
			return err
		}
		verr.add("plant", "unknown plant "+strconv.Quote(in.Plant))
		return verr
	}
	if in.Line == "" {
		return verr.errOrNil()
	}
	if _, err := s.masterData.Line(ctx, in.Plant, in.Line); err != nil {
		if !errors.Is(err, masterdata.ErrNotFound) {
			return err
		}
		verr.add("line", "unknown line "+strconv.Quote(in.Line)+" of plant "+strconv.Quote(in.Plant))
	}
	return verr.errOrNil()
}

func (s *Service) normalizeFilter(filter Filter) (Filter, error) {
	verr := &ValidationError{}
	switch {
	case filter.Page < 0:
		verr.add("page", "must not be negative")
	case filter.Page == 0:
		filter.Page = 1
	}
	switch {
	case filter.PageSize < 0:
		verr.add("page_size", "must not be negative")
	case filter.PageSize == 0:
		filter.PageSize = s.cfg.PageSize.Default
	case filter.PageSize > s.cfg.PageSize.Max:
		verr.add("page_size", "must not be greater than "+strconv.Itoa(s.cfg.PageSize.Max))
	}
	if filter.Page > 0 && filter.PageSize > 0 && filter.Page > math.MaxInt/filter.PageSize {
		verr.add("page", "is too large")
	}
	var from, to time.Time
	var err error
	if filter.From != "" {
		if from, err = time.Parse(DateLayout, filter.From); err != nil {
			verr.add("from", "must be a date in YYYY-MM-DD format")
		}
	}
	if filter.To != "" {
		if to, err = time.Parse(DateLayout, filter.To); err != nil {
			verr.add("to", "must be a date in YYYY-MM-DD format")
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		verr.add("from", "must not be after to")
	}
	return filter, verr.errOrNil()
}

// audit writes the entry. The change is already stored, so a failed write (logged by the auditor) is not reported.
func (s *Service) audit(ctx context.Context, action audit.Action, table string, id int64, details map[string]interface{}) {
	_ = s.auditor.Write(ctx, audit.Entry{
		Action:   action,
		Table:    table,
		RecordID: strconv.FormatInt(id, 10),
		Details:  details,
	})
}

func idFilter(id int64) []backend.Filter {
	return []backend.Filter{backend.Eq("id", strconv.FormatInt(id, 10))}
}

func patchedFields(p Patch) []string {
	var fields []string
	for name, set := range map[string]bool{
		"plant":        p.Plant != nil,
		"line":         p.Line != nil,
		"inspected_at": p.InspectedAt != nil,
		"area":         p.Area != nil,
		"description":  p.Description != nil,
		"photo_urls":   p.PhotoURLs != nil,
		"inspector":    p.Inspector != nil,
	} {
		if set {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package inspection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/inspecta/inspecta/audit"
	"github.com/inspecta/inspecta/backend"
	"github.com/inspecta/inspecta/config"
	"github.com/inspecta/inspecta/masterdata"
)

type storeCall struct {
	method  string
	table   string
	query   backend.Query
	filters []backend.Filter
	body    string
}

type fakeStore struct {
	calls    []storeCall
	rows     []Record
	total    int
	deleted  int
	err      error
	inserted Record
}

func (s *fakeStore) Select(ctx context.Context, table string, q backend.Query, dst interface{}) (int, error) {
	s.calls = append(s.calls, storeCall{method: "select", table: table, query: q})
	if s.err != nil {
		return 0, s.err
	}
	return s.total, reencode(s.rows, dst)
}

func (s *fakeStore) SelectOne(ctx context.Context, table string, filters []backend.Filter, dst interface{}) error {
	s.calls = append(s.calls, storeCall{method: "selectOne", table: table, filters: filters})
	if s.err != nil {
		return s.err
	}
	if len(s.rows) == 0 {
		return backend.ErrNoRows
	}
	return reencode(s.rows[0], dst)
}

func (s *fakeStore) Insert(ctx context.Context, table string, row interface{}, dst interface{}) error {
	s.calls = append(s.calls, storeCall{method: "insert", table: table, body: mustJSON(row)})
	return reencode([]Record{s.inserted}, dst)
}

func (s *fakeStore) Update(ctx context.Context, table string, filters []backend.Filter, patch interface{}, dst interface{}) error {
	s.calls = append(s.calls, storeCall{method: "update", table: table, filters: filters, body: mustJSON(patch)})
	return reencode(s.rows, dst)
}

func (s *fakeStore) Delete(ctx context.Context, table string, filters []backend.Filter) (int, error) {
	s.calls = append(s.calls, storeCall{method: "delete", table: table, filters: filters})
	return s.deleted, s.err
}

type fakeMasterData struct{}

func (fakeMasterData) Plant(ctx context.Context, code string) (masterdata.Plant, error) {
	if code != "PLT1" {
		return masterdata.Plant{}, fmt.Errorf("plant %q: %w", code, masterdata.ErrNotFound)
	}
	return masterdata.Plant{Code: code}, nil
}

func (fakeMasterData) Line(ctx context.Context, plant, code string) (masterdata.Line, error) {
	if code != "L1" && code != "L2" {
		return masterdata.Line{}, fmt.Errorf("line %q: %w", code, masterdata.ErrNotFound)
	}
	return masterdata.Line{Code: code, Plant: plant}, nil
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Write(ctx context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func reencode(src, dst interface{}) error {
	return json.Unmarshal([]byte(mustJSON(src)), dst)
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func validInput() Input {
	return Input{
		Plant:       "PLT1",
		Line:        "L1",
		InspectedAt: "2025-03-14",
		Area:        "Filling room",
		Description: "Floor drain clean",
		PhotoURLs:   []string{"https://abc.supabase.co/storage/v1/object/public/photos/1.jpg"},
		Inspector:   "Dewi",
	}
}

type ServiceTestSuite struct {
	suite.Suite
	store   *fakeStore
	auditor *recordingAuditor
	svc     *Service
}

func TestService(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.store = &fakeStore{}
	s.auditor = &recordingAuditor{}
	s.svc = NewService(NewDefaultConfig(), s.store, fakeMasterData{}, s.auditor)
	s.svc.now = func() time.Time { return time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC) }
}

func (s *ServiceTestSuite) TestList() {
	s.store.rows = []Record{{ID: 2, Plant: "PLT1"}, {ID: 1, Plant: "PLT1"}}
	s.store.total = 42

	page, err := s.svc.List(context.Background(), KindSanitation, Filter{
		Plant: "PLT1", Line: "L1", From: "2025-03-01", To: "2025-03-31", Page: 3, PageSize: 10,
	})
	s.Require().NoError(err)
	s.Equal(Page{
		Items:    []Record{{ID: 2, Kind: KindSanitation, Plant: "PLT1"}, {ID: 1, Kind: KindSanitation, Plant: "PLT1"}},
		Page:     3,
		PageSize: 10,
		Total:    42,
	}, page)

	s.Require().Len(s.store.calls, 1)
	call := s.store.calls[0]
	s.Equal("sanitation_records", call.table)
	s.Equal(backend.Query{
		Filters: []backend.Filter{
			backend.Eq("plant", "PLT1"),
			backend.Eq("line", "L1"),
			backend.Gte("inspected_at", "2025-03-01"),
			backend.Lte("inspected_at", "2025-03-31"),
		},
		Order:  []string{"inspected_at.desc", "id.desc"},
		Offset: 20,
		Limit:  10,
		Count:  true,
	}, call.query)
}

func (s *ServiceTestSuite) TestList_Defaults() {
	page, err := s.svc.List(context.Background(), KindKliping, Filter{})
	s.Require().NoError(err)
	s.Equal(1, page.Page)
	s.Equal(DefaultPageSize, page.PageSize)
	s.Equal([]Record{}, page.Items)
	s.Equal("kliping_records", s.store.calls[0].table)
	s.Equal(0, s.store.calls[0].query.Offset)
}

func (s *ServiceTestSuite) TestList_PastLastPage() {
	s.store.err = &backend.Error{StatusCode: http.StatusRequestedRangeNotSatisfiable}
	page, err := s.svc.List(context.Background(), KindSanitation, Filter{Page: 100})
	s.Require().NoError(err)
	s.Empty(page.Items)
	s.Equal(-1, page.Total)
}

func (s *ServiceTestSuite) TestList_InvalidFilter() {
	_, err := s.svc.List(context.Background(), KindSanitation, Filter{
		Page: -1, PageSize: DefaultMaxPageSize + 1, From: "2025-03-31", To: "2025-03-01",
	})
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]FieldError{
		{Field: "page", Message: "must not be negative"},
		{Field: "page_size", Message: "must not be greater than 100"},
		{Field: "from", Message: "must not be after to"},
	}, verr.Fields)
	s.Empty(s.store.calls)
}

func (s *ServiceTestSuite) TestList_PageTooLarge() {
	_, err := s.svc.List(context.Background(), KindSanitation, Filter{Page: 922337203685477580, PageSize: 20})
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]FieldError{{Field: "page", Message: "is too large"}}, verr.Fields)
	s.Empty(s.store.calls)
}

func (s *ServiceTestSuite) TestUnknownKind() {
	_, err := s.svc.List(context.Background(), Kind("haccp"), Filter{})
	s.ErrorIs(err, ErrUnknownKind)
	_, err = s.svc.Get(context.Background(), Kind("haccp"), 1)
	s.ErrorIs(err, ErrUnknownKind)
	s.ErrorIs(s.svc.Delete(context.Background(), Kind("haccp"), 1), ErrUnknownKind)
}

func (s *ServiceTestSuite) TestGet() {
	_, err := s.svc.Get(context.Background(), KindAreaMonitoring, 7)
	s.ErrorIs(err, ErrNotFound)
	s.Equal([]backend.Filter{backend.Eq("id", "7")}, s.store.calls[0].filters)
	s.Equal("area_monitoring_records", s.store.calls[0].table)

	s.store.rows = []Record{{ID: 7, Plant: "PLT1"}}
	rec, err := s.svc.Get(context.Background(), KindAreaMonitoring, 7)
	s.Require().NoError(err)
	s.Equal(Record{ID: 7, Kind: KindAreaMonitoring, Plant: "PLT1"}, rec)
}

func (s *ServiceTestSuite) TestCreate() {
	in := validInput()
	in.Area = "  Filling room "
	s.store.inserted = Record{ID: 11, Plant: "PLT1", Line: "L1"}

	rec, err := s.svc.Create(context.Background(), KindSanitation, in)
	s.Require().NoError(err)
	s.Equal(int64(11), rec.ID)
	s.Equal(KindSanitation, rec.Kind)

	s.Require().Len(s.store.calls, 1)
	s.JSONEq(`{
		"plant": "PLT1", "line": "L1", "inspected_at": "2025-03-14", "area": "Filling room",
		"description": "Floor drain clean", "inspector": "Dewi",
		"photo_urls": ["https://abc.supabase.co/storage/v1/object/public/photos/1.jpg"]
	}`, s.store.calls[0].body)

	s.Require().Len(s.auditor.entries, 1)
	s.Equal(audit.Entry{
		Action:   audit.ActionCreate,
		Table:    "sanitation_records",
		RecordID: "11",
		Details:  map[string]interface{}{"plant": "PLT1", "line": "L1"},
	}, s.auditor.entries[0])
}

func (s *ServiceTestSuite) TestCreate_Validation() {
	tooManyPhotos := make([]string, DefaultMaxPhotos+1)
	for i := range tooManyPhotos {
		tooManyPhotos[i] = fmt.Sprintf("https://cdn.inspecta.id/%d.jpg", i)
	}

	tests := []struct {
		name       string
		modify     func(in *Input)
		wantFields []FieldError
	}{
		{
			name:       "unknown plant",
			modify:     func(in *Input) { in.Plant = "PLT9" },
			wantFields: []FieldError{{Field: "plant", Message: `unknown plant "PLT9"`}},
		},
		{
			name:       "unknown line",
			modify:     func(in *Input) { in.Line = "L9" },
			wantFields: []FieldError{{Field: "line", Message: `unknown line "L9" of plant "PLT1"`}},
		},
		{
			name:   "missing fields and bad date",
			modify: func(in *Input) { in.Area, in.Inspector, in.InspectedAt = "", " ", "14/03/2025" },
			wantFields: []FieldError{
				{Field: "inspected_at", Message: "must be a date in YYYY-MM-DD format"},
				{Field: "area", Message: "must be set"},
				{Field: "inspector", Message: "must be set"},
			},
		},
		{
			name:       "too many photos",
			modify:     func(in *Input) { in.PhotoURLs = tooManyPhotos },
			wantFields: []FieldError{{Field: "photo_urls", Message: "too many photos, at most 10 are allowed"}},
		},
		{
			name:       "relative photo url",
			modify:     func(in *Input) { in.PhotoURLs = []string{"photos/1.jpg"} },
			wantFields: []FieldError{{Field: "photo_urls", Message: `must contain absolute http(s) URLs, got "photos/1.jpg"`}},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			in := validInput()
			tt.modify(&in)
			_, err := s.svc.Create(context.Background(), KindSanitation, in)
			var verr *ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tt.wantFields, verr.Fields)
			s.Empty(s.store.calls)
			s.Empty(s.auditor.entries)
		})
	}
}

func (s *ServiceTestSuite) TestUpdate() {
	existing := validInput()
	s.store.rows = []Record{{
		ID: 5, Plant: existing.Plant, Line: existing.Line, InspectedAt: existing.InspectedAt,
		Area: existing.Area, PhotoURLs: existing.PhotoURLs, Inspector: existing.Inspector,
	}}

	line := "L2"
	rec, err := s.svc.Update(context.Background(), KindKliping, 5, Patch{Line: &line})
	s.Require().NoError(err)
	s.Equal(int64(5), rec.ID)

	s.Require().Len(s.store.calls, 2)
	update := s.store.calls[1]
	s.Equal("update", update.method)
	s.Equal("kliping_records", update.table)
	s.Equal([]backend.Filter{backend.Eq("id", "5")}, update.filters)
	s.JSONEq(`{"line": "L2", "updated_at": "2025-03-15T08:00:00Z"}`, update.body)

	s.Require().Len(s.auditor.entries, 1)
	s.Equal(audit.ActionUpdate, s.auditor.entries[0].Action)
	s.Equal(map[string]interface{}{"fields": []string{"line"}}, s.auditor.entries[0].Details)
}

func (s *ServiceTestSuite) TestUpdate_ValidatesMergedRecord() {
	existing := validInput()
	s.store.rows = []Record{{ID: 5, Plant: existing.Plant, Line: existing.Line, InspectedAt: existing.InspectedAt,
		Area: existing.Area, Inspector: existing.Inspector}}

	plant := "PLT9"
	_, err := s.svc.Update(context.Background(), KindKliping, 5, Patch{Plant: &plant})
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Len(s.store.calls, 1, "only the existing record must be read")
}

func (s *ServiceTestSuite) TestUpdate_NotFound() {
	area := "Warehouse"
	_, err := s.svc.Update(context.Background(), KindKliping, 5, Patch{Area: &area})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestDelete() {
	s.ErrorIs(s.svc.Delete(context.Background(), KindSanitation, 3), ErrNotFound)
	s.Empty(s.auditor.entries)

	s.store.deleted = 1
	s.Require().NoError(s.svc.Delete(context.Background(), KindSanitation, 3))
	s.Require().Len(s.auditor.entries, 1)
	s.Equal(audit.Entry{Action: audit.ActionDelete, Table: "sanitation_records", RecordID: "3"}, s.auditor.entries[0])
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("area_monitoring")
	require.NoError(t, err)
	require.Equal(t, KindAreaMonitoring, kind)

	_, err = ParseKind("Sanitation")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestConfig(t *testing.T) {
	load := func(yamlData string) (*Config, error) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
		return cfg, err
	}

	cfg, err := load("inspection:\n  tables:\n    kliping: kliping_checks\n")
	require.NoError(t, err)
	require.Equal(t, DefaultMaxPhotos, cfg.MaxPhotos)
	require.Equal(t, DefaultPageSize, cfg.PageSize.Default)
	require.Equal(t, "kliping_checks", cfg.Table(KindKliping))
	require.Equal(t, "sanitation_records", cfg.Table(KindSanitation))

	_, err = load("inspection:\n  tables:\n    haccp: haccp_records\n")
	require.EqualError(t, err, `inspection.tables: unknown record kind: "haccp"`)

	_, err = load("inspection:\n  pageSize:\n    default: 500\n")
	require.EqualError(t, err, "inspection.pageSize.default: must be positive and not greater than 100, got 500")
}

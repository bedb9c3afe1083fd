package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driving"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// mockUpload walks the happy path (or fails at StartUpload) and reports
// every transition to progress.
type mockUpload struct {
	progress  ProgressFunc
	selected  domain.UploadFile
	selectErr error
	startErr  error
	evidence  *domain.Evidence
	session   domain.UploadSession
}

func (m *mockUpload) SelectFile(file domain.UploadFile) error {
	m.selected = file
	m.session.File = file
	if m.selectErr != nil {
		m.session.State = domain.UploadError
		m.session.Err = m.selectErr
		return m.selectErr
	}
	return nil
}

func (m *mockUpload) StartUpload(_ context.Context) (*domain.Evidence, error) {
	steps := []struct {
		state    domain.UploadState
		progress int
	}{
		{domain.UploadGeneratingCredentials, 0},
		{domain.UploadTransferring, domain.ProgressCredentialsIssued},
		{domain.UploadCompleting, domain.ProgressTransferred},
		{domain.UploadCompleted, domain.ProgressCompleted},
	}
	for _, step := range steps {
		if m.startErr != nil && step.state == domain.UploadCompleting {
			m.session.State = domain.UploadError
			m.session.Err = m.startErr
			m.report()
			return nil, m.startErr
		}
		m.session.State = step.state
		m.session.Progress = step.progress
		m.report()
	}

	ev := *m.evidence
	ev.Filename = m.selected.Name
	ev.MimeType = m.selected.MimeType
	ev.SizeBytes = m.selected.SizeBytes
	return &ev, nil
}

func (m *mockUpload) report() {
	if m.progress != nil {
		m.progress(m.session)
	}
}

func (m *mockUpload) Reset() { m.session = domain.UploadSession{State: domain.UploadIdle} }

func (m *mockUpload) Session() domain.UploadSession { return m.session }

// mockIngestion is a mock implementation of driving.IngestionTracker.
type mockIngestion struct {
	status   domain.IngestionStatus
	statuses []domain.IngestionStatus
	waitErr  error
	err      error
	waited   bool
}

func (m *mockIngestion) GetStatus(_ context.Context, _, documentID string) (domain.IngestionStatus, error) {
	s := m.status
	s.DocumentID = documentID
	return s, m.err
}

func (m *mockIngestion) GetStatuses(_ context.Context, _ string) ([]domain.IngestionStatus, error) {
	return m.statuses, m.err
}

func (m *mockIngestion) WaitUntilIndexed(_ context.Context, _, documentID string) (domain.IngestionStatus, error) {
	m.waited = true
	s := m.status
	s.DocumentID = documentID
	return s, m.waitErr
}

// mockSearch is a mock implementation of driving.SearchService.
type mockSearch struct {
	resp    domain.SearchResponse
	err     error
	queries []domain.SearchQuery
}

func (m *mockSearch) Search(_ context.Context, q domain.SearchQuery) (domain.SearchResponse, error) {
	m.queries = append(m.queries, q)
	return m.resp, m.err
}

// mockCitations is a mock implementation of driving.CitationService.
type mockCitations struct {
	saved   []domain.Citation
	err     error
	cleared bool
	format  domain.ExportFormat
}

func (m *mockCitations) AddFromResults(_ context.Context, results []domain.SearchResult) ([]domain.Citation, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range results {
		m.saved = append(m.saved, domain.CitationFromResult(results[i], testTime))
	}
	return m.saved, nil
}

func (m *mockCitations) List(_ context.Context) ([]domain.Citation, error) {
	return m.saved, m.err
}

func (m *mockCitations) Clear(_ context.Context) error {
	m.cleared = true
	m.saved = nil
	return m.err
}

func (m *mockCitations) Export(_ context.Context, format domain.ExportFormat, w io.Writer) error {
	m.format = format
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "exported:"+string(format)+"\n")
	return err
}

// mockEvidence is a mock implementation of driving.EvidenceService.
type mockEvidence struct {
	result      domain.EvidencePage
	err         error
	gotPage     int
	gotPageSize int
}

func (m *mockEvidence) List(_ context.Context, _ string, page, pageSize int) (domain.EvidencePage, error) {
	m.gotPage, m.gotPageSize = page, pageSize
	return m.result, m.err
}

// mockSettings is a mock implementation of driving.SettingsService.
type mockSettings struct {
	mu       sync.Mutex
	settings domain.AppSettings
	set      map[string]string
	setErr   error
}

func (m *mockSettings) Get() (domain.AppSettings, error) {
	return m.settings, nil
}

func (m *mockSettings) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"api.base_url", "api.token", "engagement.id"}
}

// testServices bundles the mocks behind one Services value.
type testServices struct {
	upload    *mockUpload
	uploads   int
	ingestion *mockIngestion
	search    *mockSearch
	citations *mockCitations
	evidence  *mockEvidence
	settings  *mockSettings
	opts      Options
	closed    bool
}

func newTestServices() *testServices {
	settings := domain.DefaultAppSettings()
	settings.API.BaseURL = "https://grc.example/api"
	settings.Scope.EngagementID = "eng-1"

	return &testServices{
		upload:    &mockUpload{evidence: &domain.Evidence{ID: "ev-1", ChecksumSHA256: "abc123"}},
		ingestion: &mockIngestion{status: domain.IngestionStatus{Status: domain.IngestionPending}},
		search:    &mockSearch{},
		citations: &mockCitations{},
		evidence:  &mockEvidence{},
		settings:  &mockSettings{settings: settings},
	}
}

func (m *testServices) build(opts Options) *Services {
	m.opts = opts
	engagement := "eng-1"
	if opts.EngagementID != "" {
		engagement = opts.EngagementID
	}
	return &Services{
		NewUpload: func(progress ProgressFunc) driving.UploadCoordinator {
			m.uploads++
			m.upload.progress = progress
			return m.upload
		},
		Ingestion:    m.ingestion,
		Search:       m.search,
		Citations:    m.citations,
		Evidence:     m.evidence,
		Settings:     m.settings,
		EngagementID: engagement,
		Close: func() error {
			m.closed = true
			return nil
		},
	}
}

// setupTestServices wires mocks into the command tree and returns them with
// a cleanup that restores the package state.
func setupTestServices() (*testServices, func()) {
	m := newTestServices()
	prev := wiring
	SetWiring(func(opts Options) (*Services, error) {
		return m.build(opts), nil
	})

	return m, func() {
		wiring = prev
		services = &Services{}
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetContext(context.Background())
	}
}

// resetFlags restores every flag in the tree to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns everything printed.
func execute(args ...string) (string, error) {
	return executeWithInput("", args...)
}

func executeWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

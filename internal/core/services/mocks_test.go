package services

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/core/ports/driven"
	"github.com/custodia-labs/attest/internal/integrity"
)

// --- Mock implementations ---

// mockEvidenceAPI implements driven.EvidenceAPI for testing.
// By default it registers whatever it is given and echoes the client digest.
type mockEvidenceAPI struct {
	mu sync.Mutex

	creds       domain.UploadCredentials
	credsErr    error
	receiptSum  string // overrides the echoed checksum when set
	completeErr error
	pii         bool
	pages       []domain.EvidencePage
	listErr     error

	// blockCreds blocks RequestUploadCredentials until ctx is done.
	blockCreds bool

	credCalls     int
	completeCalls int
	listCalls     int
	lastReg       domain.Registration
}

func (m *mockEvidenceAPI) RequestUploadCredentials(
	ctx context.Context, req domain.CredentialRequest,
) (domain.UploadCredentials, error) {
	m.mu.Lock()
	m.credCalls++
	block := m.blockCreds
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.UploadCredentials{}, ctx.Err()
	}
	if m.credsErr != nil {
		return domain.UploadCredentials{}, m.credsErr
	}
	creds := m.creds
	if creds.UploadURL == "" {
		creds.UploadURL = "https://blob.example/" + req.Filename + "?sig=abc"
	}
	return creds, nil
}

func (m *mockEvidenceAPI) CompleteUpload(_ context.Context, reg domain.Registration) (domain.RegistrationReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	m.lastReg = reg
	if m.completeErr != nil {
		return domain.RegistrationReceipt{}, m.completeErr
	}
	sum := reg.ClientChecksum
	if m.receiptSum != "" {
		sum = m.receiptSum
	}
	return domain.RegistrationReceipt{
		EvidenceID: "ev-1",
		Checksum:   sum,
		SizeBytes:  reg.SizeBytes,
		PIIFlag:    m.pii,
	}, nil
}

func (m *mockEvidenceAPI) ListEvidence(
	_ context.Context, _ string, page, _ int,
) (domain.EvidencePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return domain.EvidencePage{}, m.listErr
	}
	if page < 1 || page > len(m.pages) {
		return domain.EvidencePage{Page: page}, nil
	}
	return m.pages[page-1], nil
}

func (m *mockEvidenceAPI) calls() (creds, complete int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credCalls, m.completeCalls
}

// mockBlobUploader implements driven.BlobUploader for testing.
type mockBlobUploader struct {
	mu       sync.Mutex
	err      error
	received []byte
	calls    int
	lastPath string
}

func (m *mockBlobUploader) Upload(
	_ context.Context, creds domain.UploadCredentials, body io.Reader, _ int64, _ string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPath = creds.StoragePath
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.received = data
	return nil
}

// mockStatusSource implements driven.IngestionStatusSource for testing.
// It replays statuses in order and then repeats the last one.
type mockStatusSource struct {
	mu       sync.Mutex
	statuses []domain.IngestionStatus
	errs     []error
	calls    int
	byDoc    map[string]domain.IngestionStatus
}

func (m *mockStatusSource) GetIngestionStatus(
	_ context.Context, _, documentID string,
) (domain.IngestionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++

	if m.byDoc != nil {
		s, ok := m.byDoc[documentID]
		if !ok {
			return domain.IngestionStatus{}, domain.ErrNotFound
		}
		return s, nil
	}
	if i < len(m.errs) && m.errs[i] != nil {
		return domain.IngestionStatus{}, m.errs[i]
	}
	if len(m.statuses) == 0 {
		return domain.IngestionStatus{}, domain.ErrNotFound
	}
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	return m.statuses[i], nil
}

func (m *mockStatusSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSearchBackend implements driven.LexicalSearch and driven.GroundedSearch.
type mockSearchBackend struct {
	mu        sync.Mutex
	resp      domain.SearchResponse
	err       error
	healthErr error
	block     bool
	calls     int
	health    int
	lastReq   driven.SearchRequest
}

func (m *mockSearchBackend) Search(ctx context.Context, req driven.SearchRequest) (domain.SearchResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastReq = req
	block, resp, err := m.block, m.resp, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.SearchResponse{}, ctx.Err()
	}
	if err != nil {
		return domain.SearchResponse{}, err
	}
	resp.Results = append([]domain.SearchResult(nil), resp.Results...)
	return resp, nil
}

func (m *mockSearchBackend) Health(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health++
	return m.healthErr
}

func (m *mockSearchBackend) searchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockSearchBackend) healthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

func (m *mockSearchBackend) set(fn func(m *mockSearchBackend)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

// --- Helpers ---

func memFile(name, mimeType string, content []byte) domain.UploadFile {
	return domain.UploadFile{
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func digestOf(content []byte) string {
	return integrity.Digest(content)
}

func intPtr(n int) *int { return &n }

func result(doc string, chunk int, score float64) domain.SearchResult {
	return domain.SearchResult{
		DocumentID:   doc,
		DocumentName: doc + ".pdf",
		Content:      "excerpt from " + doc,
		Score:        score,
		ChunkIndex:   chunk,
	}
}

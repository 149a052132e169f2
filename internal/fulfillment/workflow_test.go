package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike3rd/world-canine-union-sub001/internal/certificate"
	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/notify"
	"github.com/Mike3rd/world-canine-union-sub001/internal/registry"
)

// fakeStore is an in-memory RecordStore with the same guarded-update
// semantics as the Postgres repository.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.Registration

	getErr      error
	completeErr error
	completes   int
}

func newFakeStore(regs ...*models.Registration) *fakeStore {
	s := &fakeStore{records: make(map[string]*models.Registration)}
	for _, r := range regs {
		s.records[r.RegistrationNumber] = r
	}
	return s
}

func (s *fakeStore) GetByNumber(_ context.Context, number string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	reg, ok := s.records[number]
	if !ok {
		return nil, registry.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *fakeStore) Complete(_ context.Context, number, certKey, customerID, paymentIntentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return false, s.completeErr
	}
	reg, ok := s.records[number]
	if !ok || reg.Status != models.RegistrationStatusPending {
		return false, nil
	}
	reg.Status = models.RegistrationStatusCompleted
	reg.CertificateKey = &certKey
	reg.StripeCustomerID = customerID
	reg.PaymentIntentID = paymentIntentID
	s.completes++
	return true, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (r *fakeRenderer) Render(d certificate.Data) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-fake " + d.RegistrationNumber), nil
}

// fakeCertStore records distinct keys, mirroring S3 overwrite semantics.
type fakeCertStore struct {
	mu      sync.Mutex
	err     error
	objects map[string][]byte
	puts    int
}

func newFakeCertStore() *fakeCertStore {
	return &fakeCertStore{objects: make(map[string][]byte)}
}

func (s *fakeCertStore) PutCertificate(_ context.Context, number string, pdf []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	key := "certificates/" + number + ".pdf"
	s.objects[key] = pdf
	s.puts++
	return key, nil
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []notify.Welcome
}

func (s *fakeSender) SendWelcome(_ context.Context, w notify.Welcome) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, w)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

type fakeEmailLog struct {
	mu      sync.Mutex
	err     error
	entries []*models.EmailLog
}

func (l *fakeEmailLog) Create(_ context.Context, el *models.EmailLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, el)
	return nil
}

type fixture struct {
	store    *fakeStore
	renderer *fakeRenderer
	certs    *fakeCertStore
	sender   *fakeSender
	emailLog *fakeEmailLog
	workflow *Workflow
}

func newFixture(regs ...*models.Registration) *fixture {
	f := &fixture{
		store:    newFakeStore(regs...),
		renderer: &fakeRenderer{},
		certs:    newFakeCertStore(),
		sender:   &fakeSender{},
		emailLog: &fakeEmailLog{},
	}
	f.workflow = NewWorkflow(f.store, f.renderer, f.certs, f.sender, f.emailLog, "https://wcu.example", nil)
	return f
}

func pendingRegistration(number string) *models.Registration {
	return &models.Registration{
		RegistrationNumber: number,
		DogName:            "Rex",
		OwnerName:          "Jane Doe",
		OwnerEmail:         "jane@example.com",
		Breed:              "Border Collie",
		Status:             models.RegistrationStatusPending,
	}
}

func paidEvent(number string) PaymentEvent {
	return PaymentEvent{
		SessionID:          "cs_test_123",
		RegistrationNumber: number,
		CustomerID:         "cus_123",
		CustomerEmail:      "jane@example.com",
		CustomerName:       "Jane Doe",
		PaymentIntentID:    "pi_123",
		PaymentStatus:      "paid",
	}
}

func TestHappyPath(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))

	res, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-00123"))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "certificates/WCU-00123.pdf", res.CertificateKey)
	assert.True(t, res.Notification.OK())
	assert.True(t, res.AuditLog.OK())

	reg := f.store.records["WCU-00123"]
	assert.Equal(t, models.RegistrationStatusCompleted, reg.Status)
	require.NotNil(t, reg.CertificateKey)
	assert.Equal(t, "certificates/WCU-00123.pdf", *reg.CertificateKey)
	assert.Equal(t, "cus_123", reg.StripeCustomerID)
	assert.Equal(t, "pi_123", reg.PaymentIntentID)

	require.Len(t, f.sender.sent, 1)
	welcome := f.sender.sent[0]
	assert.Equal(t, "jane@example.com", welcome.To)
	assert.Contains(t, welcome.CertificateURL, "WCU-00123")
	assert.Contains(t, welcome.ProfileURL, "WCU-00123")

	require.Len(t, f.emailLog.entries, 1)
	assert.Equal(t, models.EmailLogStatusSent, f.emailLog.entries[0].Status)
}

func TestMalformedEventIsTerminal(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))

	_, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent(""))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.Zero(t, f.renderer.calls)
	assert.Empty(t, f.sender.sent)
}

func TestUnknownRegistrationIsTerminal(t *testing.T) {
	f := newFixture()

	_, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-99999"))
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Zero(t, f.renderer.calls)
	assert.Zero(t, f.certs.puts)
	assert.Empty(t, f.sender.sent)
}

func TestRedeliveryAfterSuccessIsNoOp(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))
	ev := paidEvent("WCU-00123")

	first, err := f.workflow.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, first.Completed)

	second, err := f.workflow.HandleCheckoutCompleted(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Equal(t, first.CertificateKey, second.CertificateKey)
	assert.False(t, second.Notification.Attempted)

	assert.Equal(t, 1, f.renderer.calls, "short-circuit must not re-render")
	assert.Equal(t, 1, f.certs.puts, "short-circuit must not re-store")
	assert.Len(t, f.sender.sent, 1, "redelivery must not send a second email")
	assert.Equal(t, 1, f.store.completes)
}

func TestConcurrentDeliveriesCompleteAtMostOnce(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))
	ev := paidEvent("WCU-00123")

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Result, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.workflow.HandleCheckoutCompleted(context.Background(), ev)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i].Completed {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one delivery may claim completion")
	assert.Equal(t, 1, f.store.completes)
	assert.Len(t, f.sender.sent, 1, "only the guarded-update winner sends the email")
	assert.Len(t, f.certs.objects, 1, "deterministic key leaves a single stored certificate")
}

func TestRenderFailureLeavesRecordPending(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))
	f.renderer.err = fmt.Errorf("bad input: %w", certificate.ErrMissingField)

	_, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-00123"))
	require.Error(t, err)
	assert.ErrorIs(t, err, certificate.ErrMissingField)

	assert.Equal(t, models.RegistrationStatusPending, f.store.records["WCU-00123"].Status)
	assert.Zero(t, f.certs.puts)
	assert.Empty(t, f.sender.sent)
}

func TestStorageFailureLeavesRecordPending(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))
	f.certs.err = errors.New("s3 unavailable")

	_, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-00123"))
	require.Error(t, err)

	assert.Equal(t, models.RegistrationStatusPending, f.store.records["WCU-00123"].Status)
	assert.Empty(t, f.sender.sent)
}

func TestNotificationFailureDoesNotFailWorkflow(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))
	f.sender.err = errors.New("provider down")

	res, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-00123"))
	require.NoError(t, err, "a missed welcome email must not fail fulfillment")
	assert.True(t, res.Completed)
	assert.True(t, res.Notification.Attempted)
	assert.Error(t, res.Notification.Err)

	// Status stays completed; the failure is visible in the email log.
	assert.Equal(t, models.RegistrationStatusCompleted, f.store.records["WCU-00123"].Status)
	require.Len(t, f.emailLog.entries, 1)
	assert.Equal(t, models.EmailLogStatusFailed, f.emailLog.entries[0].Status)
}

func TestEmailLogFailureIsNonFatal(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))
	f.emailLog.err = errors.New("log table gone")

	res, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-00123"))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.Notification.OK())
	assert.True(t, res.AuditLog.Attempted)
	assert.Error(t, res.AuditLog.Err)
}

func TestCompletedImpliesCertificatePresent(t *testing.T) {
	f := newFixture(pendingRegistration("WCU-00123"))

	res, err := f.workflow.HandleCheckoutCompleted(context.Background(), paidEvent("WCU-00123"))
	require.NoError(t, err)
	require.True(t, res.Completed)

	reg := f.store.records["WCU-00123"]
	require.Equal(t, models.RegistrationStatusCompleted, reg.Status)
	require.NotNil(t, reg.CertificateKey, "a completed record must carry a certificate reference")
	_, ok := f.certs.objects[*reg.CertificateKey]
	assert.True(t, ok, "the referenced certificate object must exist")
}

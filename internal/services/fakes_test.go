package services

import (
	"context"
	"fmt"

	"flippa/internal/gateway"
	"flippa/internal/models"
	"flippa/internal/repository"
)

// memStore is an in-memory stand-in for the database. Reads hand out copies,
// so only Create/Save mutate stored state, and Transaction restores a
// snapshot when the callback fails, close enough to the real rollback
// semantics to exercise the all-or-nothing paths.
type memStore struct {
	users    map[uint]models.User
	listings map[uint]models.Listing
	escrows  map[uint]models.Escrow
	payments map[uint]models.Payment
	configs  map[string]models.SystemConfig

	auditLogs []models.AuditLog

	nextEscrowID  uint
	nextPaymentID uint
	nextConfigID  uint

	failEscrowSave  bool
	failListingSave bool
	failPaymentSave bool
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uint]models.User),
		listings:      make(map[uint]models.Listing),
		escrows:       make(map[uint]models.Escrow),
		payments:      make(map[uint]models.Payment),
		configs:       make(map[string]models.SystemConfig),
		nextEscrowID:  1,
		nextPaymentID: 1,
		nextConfigID:  1,
	}
}

func (st *memStore) repos() repository.Repos {
	return repository.Repos{
		Users:     &memUsers{st},
		Listings:  &memListings{st},
		Escrows:   &memEscrows{st},
		Payments:  &memPayments{st},
		Configs:   &memConfigs{st},
		AuditLogs: &memAuditLogs{st},
	}
}

type storeSnapshot struct {
	listings map[uint]models.Listing
	escrows  map[uint]models.Escrow
	payments map[uint]models.Payment
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *memStore) Transaction(fn func(repository.Repos) error) error {
	snap := storeSnapshot{
		listings: copyMap(st.listings),
		escrows:  copyMap(st.escrows),
		payments: copyMap(st.payments),
	}
	if err := fn(st.repos()); err != nil {
		st.listings = snap.listings
		st.escrows = snap.escrows
		st.payments = snap.payments
		return err
	}
	return nil
}

func (st *memStore) auditActions() []string {
	actions := make([]string, 0, len(st.auditLogs))
	for _, entry := range st.auditLogs {
		actions = append(actions, entry.Action)
	}
	return actions
}

type memUsers struct{ st *memStore }

func (r *memUsers) FindByID(id uint) (*models.User, error) {
	if u, ok := r.st.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

type memListings struct{ st *memStore }

func (r *memListings) FindByID(id uint) (*models.Listing, error) {
	if l, ok := r.st.listings[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *memListings) Save(listing *models.Listing) error {
	if r.st.failListingSave {
		return fmt.Errorf("listing save failed")
	}
	r.st.listings[listing.ID] = *listing
	return nil
}

type memEscrows struct{ st *memStore }

func (r *memEscrows) Create(escrow *models.Escrow) error {
	if r.st.failEscrowSave {
		return fmt.Errorf("escrow create failed")
	}
	escrow.ID = r.st.nextEscrowID
	r.st.nextEscrowID++
	r.st.escrows[escrow.ID] = *escrow
	return nil
}

func (r *memEscrows) Save(escrow *models.Escrow) error {
	if r.st.failEscrowSave {
		return fmt.Errorf("escrow save failed")
	}
	r.st.escrows[escrow.ID] = *escrow
	return nil
}

func (r *memEscrows) FindByID(id uint) (*models.Escrow, error) {
	if e, ok := r.st.escrows[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (r *memEscrows) FindByBuyerID(buyerID uint) ([]models.Escrow, error) {
	var out []models.Escrow
	for _, e := range r.st.escrows {
		if e.BuyerID == buyerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEscrows) FindBySellerID(sellerID uint) ([]models.Escrow, error) {
	var out []models.Escrow
	for _, e := range r.st.escrows {
		if e.SellerID == sellerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEscrows) FindDisputed() ([]models.Escrow, error) {
	var out []models.Escrow
	for _, e := range r.st.escrows {
		if e.DisputeRaised {
			out = append(out, e)
		}
	}
	return out, nil
}

type memPayments struct{ st *memStore }

func (r *memPayments) Create(payment *models.Payment) error {
	if r.st.failPaymentSave {
		return fmt.Errorf("payment create failed")
	}
	payment.ID = r.st.nextPaymentID
	r.st.nextPaymentID++
	r.st.payments[payment.ID] = *payment
	return nil
}

func (r *memPayments) Save(payment *models.Payment) error {
	if r.st.failPaymentSave {
		return fmt.Errorf("payment save failed")
	}
	r.st.payments[payment.ID] = *payment
	return nil
}

func (r *memPayments) FindByID(id uint) (*models.Payment, error) {
	if p, ok := r.st.payments[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *memPayments) FindByTransactionID(transactionID string) (*models.Payment, error) {
	for _, p := range r.st.payments {
		if p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPayments) FindByGatewayTransactionID(gatewayTransactionID string) (*models.Payment, error) {
	if gatewayTransactionID == "" {
		return nil, nil
	}
	for _, p := range r.st.payments {
		if p.GatewayTransactionID == gatewayTransactionID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memPayments) FindByEscrowID(escrowID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.st.payments {
		if p.EscrowID == escrowID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPayments) FindByUserID(userID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.st.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memConfigs struct{ st *memStore }

func (r *memConfigs) FindByKey(key string) (*models.SystemConfig, error) {
	if c, ok := r.st.configs[key]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r *memConfigs) FindAll() ([]models.SystemConfig, error) {
	var out []models.SystemConfig
	for _, c := range r.st.configs {
		out = append(out, c)
	}
	return out, nil
}

func (r *memConfigs) Save(config *models.SystemConfig) error {
	if config.ID == 0 {
		config.ID = r.st.nextConfigID
		r.st.nextConfigID++
	}
	r.st.configs[config.ConfigKey] = *config
	return nil
}

type memAuditLogs struct{ st *memStore }

func (r *memAuditLogs) Create(entry *models.AuditLog) error {
	r.st.auditLogs = append(r.st.auditLogs, *entry)
	return nil
}

// fakeAdapter scripts a gateway adapter's behavior.
type fakeAdapter struct {
	name         models.PaymentGateway
	initResult   *gateway.InitiationResult
	initErr      error
	statusResult *gateway.StatusResult
	statusErr    error

	initiateCalls int
	statusCalls   int
}

func (f *fakeAdapter) Name() models.PaymentGateway { return f.name }

func (f *fakeAdapter) Initiate(ctx context.Context, amount float64, reference, payerEmail, description string) (*gateway.InitiationResult, error) {
	f.initiateCalls++
	return f.initResult, f.initErr
}

func (f *fakeAdapter) CheckStatus(ctx context.Context, pollToken string) (*gateway.StatusResult, error) {
	f.statusCalls++
	return f.statusResult, f.statusErr
}

// fixture wires the services against the in-memory store with a seeded
// seller (1), buyer (2), outsider (3), admin (9) and one active listing (1)
// priced 1000.00.
type fixture struct {
	store    *memStore
	paynow   *fakeAdapter
	paypal   *fakeAdapter
	escrows  *EscrowService
	payments *PaymentService
	config   *ConfigService
}

func newFixture() *fixture {
	st := newMemStore()
	st.users[1] = models.User{ID: 1, FullName: "John Doe", Email: "seller@example.com", Role: "user"}
	st.users[2] = models.User{ID: 2, FullName: "Jane Smith", Email: "buyer@example.com", Role: "user"}
	st.users[3] = models.User{ID: 3, FullName: "Ted Third", Email: "outsider@example.com", Role: "user"}
	st.users[9] = models.User{ID: 9, FullName: "Ada Admin", Email: "admin@example.com", Role: "admin"}
	st.listings[1] = models.Listing{ID: 1, SellerID: 1, Title: "Test Listing", Price: 1000.00, Status: models.ListingActive}

	paynow := &fakeAdapter{
		name:       models.GatewayPayNowZim,
		initResult: &gateway.InitiationResult{RedirectURL: "https://paynow.test/pay", PollToken: "https://paynow.test/poll/1"},
	}
	paypal := &fakeAdapter{
		name:       models.GatewayPayPal,
		initResult: &gateway.InitiationResult{RedirectURL: "https://paypal.test/approve", PollToken: "ORDER123"},
	}
	registry := gateway.NewRegistry(paynow, paypal)

	repos := st.repos()
	audit := NewAuditService(repos)
	notifier := &NotificationService{} // no API key: sends nothing
	config := NewConfigService(repos, audit)
	escrows := NewEscrowService(repos, st, audit, notifier)
	payments := NewPaymentService(repos, st, registry, config, escrows, audit)

	return &fixture{
		store:    st,
		paynow:   paynow,
		paypal:   paypal,
		escrows:  escrows,
		payments: payments,
		config:   config,
	}
}

// disableGateway seeds a config row that turns a gateway off.
func (f *fixture) disableGateway(name string) {
	f.store.configs["payment.gateway."+name+".enabled"] = models.SystemConfig{
		ID: 99, ConfigKey: "payment.gateway." + name + ".enabled", Enabled: false,
	}
}

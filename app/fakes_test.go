package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/propertyscope/propertyscope-api/app/billing"
	"github.com/propertyscope/propertyscope-api/app/generation"
	"github.com/propertyscope/propertyscope-api/app/models"
	"github.com/propertyscope/propertyscope-api/app/store"
)

// memStore mirrors the Postgres store semantics in memory.
type memStore struct {
	mu            sync.Mutex
	clock         time.Time
	seq           int
	users         map[string]models.User
	properties    map[string]models.Property
	analyses      []models.Analysis
	reports       []models.Report
	subscriptions map[string]*models.Subscription
	failWrites    error
	pingErr       error
}

func newMemStore() *memStore {
	return &memStore{
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:         map[string]models.User{},
		properties:    map[string]models.Property{},
		subscriptions: map[string]*models.Subscription{},
	}
}

func (m *memStore) tick() (string, time.Time) {
	m.seq++
	m.clock = m.clock.Add(time.Second)
	return fmt.Sprintf("id-%d", m.seq), m.clock
}

func (m *memStore) Ping(context.Context) error {
	return m.pingErr
}

func (m *memStore) UpsertUser(_ context.Context, id, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, now := m.tick()
	u, ok := m.users[id]
	if !ok {
		u = models.User{ID: id, CreatedAt: now}
	}
	if email != "" {
		u.Email = email
	}
	if name != "" {
		u.Name = name
	}
	u.LastLoginAt = now
	m.users[id] = u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateValuation(_ context.Context, prop *models.Property, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	prop.ID, prop.CreatedAt = m.tick()
	m.properties[prop.ID] = *prop
	id := prop.ID
	a.PropertyID = &id
	a.ID, a.CreatedAt = m.tick()
	m.analyses = append(m.analyses, *a)
	a.Property = prop
	return nil
}

func (m *memStore) CreateAnalysis(_ context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	a.ID, a.CreatedAt = m.tick()
	m.analyses = append(m.analyses, *a)
	return nil
}

func (m *memStore) ListAnalyses(_ context.Context, userID string, kind models.AnalysisType, limit int) ([]models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Analysis{}
	for _, a := range m.analyses {
		if a.UserID != userID || (kind != "" && a.Type != kind) {
			continue
		}
		if a.PropertyID != nil {
			p := m.properties[*a.PropertyID]
			a.Property = &p
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.PropertyID != nil {
		p, ok := m.properties[*r.PropertyID]
		if !ok || p.UserID != r.UserID {
			return store.ErrNotFound
		}
	}
	r.ID, r.CreatedAt = m.tick()
	m.reports = append(m.reports, *r)
	return nil
}

func (m *memStore) ListReports(_ context.Context, userID string) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Report{}
	for i := len(m.reports) - 1; i >= 0; i-- {
		if m.reports[i].UserID == userID {
			out = append(out, m.reports[i])
		}
	}
	return out, nil
}

func (m *memStore) GetSubscriptionByUser(_ context.Context, userID string) (models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[userID]
	if !ok {
		return models.Subscription{}, store.ErrNotFound
	}
	return *s, nil
}

func (m *memStore) UpsertSubscriptionCustomer(_ context.Context, userID, customerID string) (models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[userID]
	if !ok {
		id, now := m.tick()
		s = &models.Subscription{ID: id, UserID: userID, Status: models.SubscriptionNone, CreatedAt: now}
		m.subscriptions[userID] = s
	}
	if s.StripeCustomerID == "" {
		s.StripeCustomerID = customerID
	}
	return *s, nil
}

func (m *memStore) ApplySubscriptionEvent(_ context.Context, ev models.SubscriptionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target *models.Subscription
	for _, s := range m.subscriptions {
		switch {
		case ev.Match == models.MatchByCustomer && ev.CustomerID != "" && s.StripeCustomerID == ev.CustomerID:
			target = s
		case ev.Match == models.MatchBySubscription && ev.SubscriptionID != "" &&
			s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == ev.SubscriptionID:
			target = s
		}
	}
	if target == nil {
		return store.ErrNotFound
	}
	if target.LastEventAt != nil && target.LastEventAt.After(ev.OccurredAt) {
		return store.ErrStaleEvent
	}
	if ev.SetSubscription {
		id := ev.SubscriptionID
		target.StripeSubscriptionID = &id
	}
	if ev.PriceID != nil {
		target.StripePriceID = ev.PriceID
	}
	if ev.CurrentPeriodEnd != nil {
		target.StripeCurrentPeriodEnd = ev.CurrentPeriodEnd
	}
	target.Status = ev.Status
	occurred := ev.OccurredAt
	target.LastEventAt = &occurred
	return nil
}

func (m *memStore) analysisCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.analyses)
}

// missingReadStore answers every subscription read with ErrNotFound, as two
// checkouts racing past the initial lookup would see.
type missingReadStore struct {
	*memStore
}

func (missingReadStore) GetSubscriptionByUser(context.Context, string) (models.Subscription, error) {
	return models.Subscription{}, store.ErrNotFound
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []generation.Prompt
	text    string
	err     error
}

func (f *fakeGenerator) Complete(_ context.Context, p generation.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeProcessor struct {
	mu        sync.Mutex
	customers []string
	checkouts []billing.CheckoutRequest
	portals   []string
	snapshots map[string]billing.SubscriptionSnapshot
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, email, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers = append(f.customers, email+"|"+userID)
	return fmt.Sprintf("cus_%d", len(f.customers)), nil
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.stripe.test/session", nil
}

func (f *fakeProcessor) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portals = append(f.portals, customerID+"|"+returnURL)
	return "https://billing.stripe.test/portal", nil
}

func (f *fakeProcessor) GetSubscription(_ context.Context, id string) (billing.SubscriptionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[id]
	if !ok {
		return billing.SubscriptionSnapshot{}, errors.New("no such subscription")
	}
	return snap, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.AnalysisEvent
	err    error
}

func (f *fakePublisher) PublishAnalysis(_ context.Context, ev models.AnalysisEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

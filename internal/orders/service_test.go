package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	farmerA   = "f0000000-0000-4000-8000-00000000000a"
	farmerB   = "f0000000-0000-4000-8000-00000000000b"
	consumerX = "c0000000-0000-4000-8000-0000000000c1"
	consumerY = "c0000000-0000-4000-8000-0000000000c2"

	productA = "a0000000-0000-4000-8000-000000000001"
	productB = "a0000000-0000-4000-8000-000000000002"
	productC = "a0000000-0000-4000-8000-000000000003" // farmer B
	productD = "a0000000-0000-4000-8000-000000000004" // inactive
	missing  = "a0000000-0000-4000-8000-0000000000ff"
)

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	products map[string]Product
	inactive map[string]bool
	orders   []*Order
	failWith error
	raceOn   string // order id whose next UpdateStatus loses a race
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]Product{
			productA: {ID: productA, FarmerID: farmerA, Name: "Tomate", PriceCents: 1000, StockQty: 5},
			productB: {ID: productB, FarmerID: farmerA, Name: "Alface", PriceCents: 500, StockQty: 3},
			productC: {ID: productC, FarmerID: farmerB, Name: "Queijo", PriceCents: 2500, StockQty: 10},
			productD: {ID: productD, FarmerID: farmerA, Name: "Ovos", PriceCents: 800, StockQty: 10},
		},
		inactive: map[string]bool{productD: true},
	}
}

func (m *memStore) ActiveProducts(_ context.Context, ids []string) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok && !m.inactive[id] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) CreateOrder(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *memStore) find(id string) *Order {
	for _, o := range m.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (m *memStore) detail(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	cp.Farmer = &FarmerSummary{ID: o.FarmerID, Name: "farmer " + o.FarmerID[len(o.FarmerID)-1:]}
	cp.Consumer = &ConsumerSummary{ID: o.ConsumerID, Name: "consumer " + o.ConsumerID[len(o.ConsumerID)-1:]}
	return &cp
}

func (m *memStore) GetOrder(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.find(id)
	if o == nil {
		return nil, ErrNotFound
	}
	return m.detail(o), nil
}

func (m *memStore) ListOrders(_ context.Context, f ListFilter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if f.ConsumerID != "" && o.ConsumerID != f.ConsumerID {
			continue
		}
		if f.FarmerID != "" && o.FarmerID != f.FarmerID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *m.detail(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.find(id)
	if o == nil {
		return ErrNotFound
	}
	if m.raceOn == id {
		m.raceOn = ""
		return ErrStatusChanged
	}
	if o.Status != from {
		return ErrStatusChanged
	}
	o.Status, o.UpdatedAt = to, at
	return nil
}

type recordingPublisher struct {
	events []Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	store *memStore
	pub   *recordingPublisher
	svc   *Service
	clock time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store: newMemStore(),
		pub:   &recordingPublisher{},
		clock: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.pub, nil)
	f.svc.now = func() time.Time { return f.clock }
	seq := 0
	f.svc.newID = func() string {
		seq++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", seq)
	}
	return f
}

func items(pairs ...any) []ItemInput {
	out := make([]ItemInput, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, ItemInput{ProductID: pairs[i].(string), Qty: pairs[i+1].(int)})
	}
	return out
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	require.Error(t, err)
	return apperr.KindOf(err)
}

func TestCreate_SubtotalAndSnapshot(t *testing.T) {
	f := newFixture()
	note := "deixar na portaria"

	o, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
		DeliveryMethod: DeliveryMethodDelivery,
		Note:           &note,
		Items:          items(productA, 2, productB, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 2500, o.SubtotalCents)
	assert.Equal(t, farmerA, o.FarmerID)
	assert.Equal(t, consumerX, o.ConsumerID)
	assert.Equal(t, &note, o.Note)
	require.NotNil(t, o.Farmer)
	require.NotNil(t, o.Consumer)

	require.Len(t, o.Items, 2)
	assert.Equal(t, Item{ID: o.Items[0].ID, OrderID: o.ID, ProductID: productA, ProductName: "Tomate", UnitPriceCents: 1000, Qty: 2, LineTotalCents: 2000}, o.Items[0])
	assert.Equal(t, Item{ID: o.Items[1].ID, OrderID: o.ID, ProductID: productB, ProductName: "Alface", UnitPriceCents: 500, Qty: 1, LineTotalCents: 500}, o.Items[1])

	sum := 0
	for _, it := range o.Items {
		assert.Equal(t, it.UnitPriceCents*it.Qty, it.LineTotalCents)
		sum += it.LineTotalCents
	}
	assert.Equal(t, o.SubtotalCents, sum)

	// stock is validated, never decremented
	assert.Equal(t, 5, f.store.products[productA].StockQty)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, EventOrderCreated, f.pub.events[0].Type)
	assert.Equal(t, o.ID, f.pub.events[0].OrderID)
}

func TestCreate_PriceChangeDoesNotTouchPlacedOrder(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
		DeliveryMethod: DeliveryMethodPickup,
		Items:          items(productA, 1),
	})
	require.NoError(t, err)

	p := f.store.products[productA]
	p.PriceCents, p.Name = 9999, "Tomate italiano"
	f.store.products[productA] = p

	got, err := f.svc.Get(context.Background(), auth.NewConsumer(consumerX), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Items[0].UnitPriceCents)
	assert.Equal(t, "Tomate", got.Items[0].ProductName)
	assert.Equal(t, 1000, got.SubtotalCents)
}

func TestCreate_InsufficientStockReportsShortfall(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
		DeliveryMethod: DeliveryMethodDelivery,
		Items:          items(productA, 10),
	})
	require.Equal(t, apperr.KindValidation, kindOf(t, err))

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, Shortfall{ProductID: productA, Available: 5, Requested: 10}, ae.Details)
	assert.Contains(t, ae.Message, "insufficient stock")
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.pub.events)
}

func TestCreate_RejectsInvalidProducts(t *testing.T) {
	cases := map[string][]ItemInput{
		"inactive":     items(productA, 1, productD, 1),
		"unknown":      items(productA, 1, missing, 1),
		"two farmers":  items(productA, 1, productC, 1),
		"only unknown": items(missing, 1),
	}
	for name, its := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
				DeliveryMethod: DeliveryMethodPickup,
				Items:          its,
			})
			assert.Equal(t, apperr.KindValidation, kindOf(t, err))
			assert.Empty(t, f.store.orders)
		})
	}
}

func TestCreate_SingleFarmerMessage(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
		DeliveryMethod: DeliveryMethodPickup,
		Items:          items(productA, 1, productC, 1),
	})
	assert.EqualError(t, err, "order must contain products from only one farmer")
}

func TestCreate_InputValidation(t *testing.T) {
	long := strings.Repeat("x", 501)
	cases := map[string]CreateInput{
		"no items":      {DeliveryMethod: DeliveryMethodPickup},
		"qty zero":      {DeliveryMethod: DeliveryMethodPickup, Items: items(productA, 0)},
		"qty too large": {DeliveryMethod: DeliveryMethodPickup, Items: items(productA, 1000)},
		"bad method":    {DeliveryMethod: "DRONE", Items: items(productA, 1)},
		"note too long": {DeliveryMethod: DeliveryMethodPickup, Note: &long, Items: items(productA, 1)},
		"bad id":        {DeliveryMethod: DeliveryMethodPickup, Items: items("not-a-uuid", 1)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), in)
			assert.Equal(t, apperr.KindValidation, kindOf(t, err))
		})
	}
}

func TestCreate_DuplicateIDsCollapse(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
		DeliveryMethod: DeliveryMethodPickup,
		Items:          items(productA, 1, productA, 3),
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Qty)
	assert.Equal(t, 3000, o.SubtotalCents)
}

func TestCreate_StoreFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.store.failWith = errors.New("connection reset")
	_, err := f.svc.Create(context.Background(), auth.NewConsumer(consumerX), CreateInput{
		DeliveryMethod: DeliveryMethodPickup,
		Items:          items(productA, 1),
	})
	assert.Equal(t, apperr.KindInternal, kindOf(t, err))
	assert.ErrorContains(t, err, "internal server error")
}

func placeOrder(t *testing.T, f *fixture, consumer string) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), auth.NewConsumer(consumer), CreateInput{
		DeliveryMethod: DeliveryMethodDelivery,
		Items:          items(productA, 2, productB, 1),
	})
	require.NoError(t, err)
	return o
}

func TestSetStatus_Lifecycle(t *testing.T) {
	f := newFixture()
	o := placeOrder(t, f, consumerX)
	farmer := auth.NewFarmer(farmerA)
	ctx := context.Background()

	f.clock = f.clock.Add(time.Minute)
	got, err := f.svc.SetStatus(ctx, farmer, o.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, f.clock, got.UpdatedAt)

	_, err = f.svc.SetStatus(ctx, farmer, o.ID, StatusConfirmed)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))

	got, err = f.svc.SetStatus(ctx, farmer, o.ID, StatusDone)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)

	for _, to := range []Status{StatusConfirmed, StatusDone, StatusCanceled} {
		_, err = f.svc.SetStatus(ctx, farmer, o.ID, to)
		assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))
		assert.EqualError(t, err, "order already DONE")
	}

	require.Len(t, f.pub.events, 3)
	assert.Equal(t, OrderStatusChangedPayload{
		OrderID: o.ID, ConsumerID: consumerX, FarmerID: farmerA, From: "CONFIRMED", To: "DONE",
	}, f.pub.events[2].Payload)
}

func TestSetStatus_Rejections(t *testing.T) {
	f := newFixture()
	o := placeOrder(t, f, consumerX)
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, auth.NewFarmer(farmerA), o.ID, StatusDone)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))
	assert.EqualError(t, err, "cannot set DONE before CONFIRMED")

	_, err = f.svc.SetStatus(ctx, auth.NewFarmer(farmerA), o.ID, StatusPending)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))

	_, err = f.svc.SetStatus(ctx, auth.NewFarmer(farmerB), o.ID, StatusConfirmed)
	assert.Equal(t, apperr.KindForbidden, kindOf(t, err))

	_, err = f.svc.SetStatus(ctx, auth.NewFarmer(farmerA), missing, StatusConfirmed)
	assert.Equal(t, apperr.KindNotFound, kindOf(t, err))

	_, err = f.svc.SetStatus(ctx, auth.NewFarmer(farmerA), o.ID, Status("SHIPPED"))
	assert.Equal(t, apperr.KindValidation, kindOf(t, err))

	got, err := f.svc.Get(ctx, auth.NewFarmer(farmerA), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestSetStatus_CancelFromPendingAndConfirmed(t *testing.T) {
	f := newFixture()
	farmer := auth.NewFarmer(farmerA)
	ctx := context.Background()

	a := placeOrder(t, f, consumerX)
	got, err := f.svc.SetStatus(ctx, farmer, a.ID, StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)

	b := placeOrder(t, f, consumerX)
	_, err = f.svc.SetStatus(ctx, farmer, b.ID, StatusConfirmed)
	require.NoError(t, err)
	got, err = f.svc.SetStatus(ctx, farmer, b.ID, StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)

	_, err = f.svc.SetStatus(ctx, farmer, b.ID, StatusConfirmed)
	assert.EqualError(t, err, "order already CANCELED")
}

func TestSetStatus_LostRace(t *testing.T) {
	f := newFixture()
	o := placeOrder(t, f, consumerX)
	f.store.raceOn = o.ID

	_, err := f.svc.SetStatus(context.Background(), auth.NewFarmer(farmerA), o.ID, StatusConfirmed)
	assert.Equal(t, apperr.KindInvalidTransition, kindOf(t, err))
	assert.Len(t, f.pub.events, 1) // only the create
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture()
	o := placeOrder(t, f, consumerX)
	ctx := context.Background()

	for _, c := range []auth.Caller{auth.NewConsumer(consumerX), auth.NewFarmer(farmerA)} {
		got, err := f.svc.Get(ctx, c, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
		assert.Len(t, got.Items, 2)
	}
	for _, c := range []auth.Caller{auth.NewConsumer(consumerY), auth.NewFarmer(farmerB)} {
		_, err := f.svc.Get(ctx, c, o.ID)
		assert.Equal(t, apperr.KindForbidden, kindOf(t, err))
	}

	_, err := f.svc.Get(ctx, auth.NewConsumer(consumerX), missing)
	assert.Equal(t, apperr.KindNotFound, kindOf(t, err))

	_, err = f.svc.Get(ctx, auth.NewConsumer(consumerX), "123")
	assert.Equal(t, apperr.KindValidation, kindOf(t, err))
}

func TestList_NewestFirstWithFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := placeOrder(t, f, consumerX)
	tie := placeOrder(t, f, consumerX) // same timestamp as first
	f.clock = f.clock.Add(time.Hour)
	newest := placeOrder(t, f, consumerX)
	other := placeOrder(t, f, consumerY)

	_, err := f.svc.SetStatus(ctx, auth.NewFarmer(farmerA), tie.ID, StatusConfirmed)
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, auth.NewConsumer(consumerX), nil)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, []string{newest.ID, first.ID, tie.ID}, []string{mine[0].ID, mine[1].ID, mine[2].ID})

	confirmed := StatusConfirmed
	mine, err = f.svc.ListMine(ctx, auth.NewConsumer(consumerX), &confirmed)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, tie.ID, mine[0].ID)

	inbox, err := f.svc.ListInbox(ctx, auth.NewFarmer(farmerA), nil)
	require.NoError(t, err)
	require.Len(t, inbox, 4)
	assert.Equal(t, newest.ID, inbox[0].ID)
	assert.Equal(t, other.ID, inbox[1].ID)

	empty, err := f.svc.ListInbox(ctx, auth.NewFarmer(farmerB), nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/gateway"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// in-memory TxRepos（エラー時はロールバック）
// =====================

type memState struct {
	orders        map[string]model.Order
	items         map[string][]model.OrderItem
	payments      map[int64]model.PaymentTransaction
	products      map[string]model.Product
	carts         map[int64][]model.CartItem
	coupons       map[string]model.Coupon
	nextPaymentID int64
	nextOrderSeq  int
}

func newMemState() memState {
	return memState{
		orders:   map[string]model.Order{},
		items:    map[string][]model.OrderItem{},
		payments: map[int64]model.PaymentTransaction{},
		products: map[string]model.Product{},
		carts:    map[int64][]model.CartItem{},
		coupons:  map[string]model.Coupon{},
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]model.CartItem(nil), v...)
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	c.nextPaymentID = s.nextPaymentID
	c.nextOrderSeq = s.nextOrderSeq
	return c
}

type memStore struct {
	mu      sync.Mutex
	state   memState
	fail    map[string]error
	txCalls int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), fail: map[string]error{}}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++

	work := m.state.clone()
	if err := fn(&memRepos{s: &work, fail: m.fail}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// テスト用の直接参照（ロック付き）
func (m *memStore) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) addProduct(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
}

func (m *memStore) addCartItem(ci model.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.carts[ci.CustomerID] = append(m.state.carts[ci.CustomerID], ci)
}

func (m *memStore) addCoupon(c model.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.coupons[c.Code] = c
}

func (m *memStore) setProductPrice(id string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.state.products[id]
	p.DiscountPrice = decimal.NewNullDecimal(price)
	m.state.products[id] = p
}

func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

type memRepos struct {
	s    *memState
	fail map[string]error
}

func (r *memRepos) Orders() repo.OrderRepository                { return memOrders{r} }
func (r *memRepos) OrderItems() repo.OrderItemRepository        { return memOrderItems{r} }
func (r *memRepos) Payments() repo.PaymentTransactionRepository { return memPayments{r} }
func (r *memRepos) Products() repo.ProductRepository            { return memProducts{r} }
func (r *memRepos) Carts() repo.CartRepository                  { return memCarts{r} }
func (r *memRepos) Coupons() repo.CouponRepository              { return memCoupons{r} }

func (r *memRepos) injected(op string) error {
	return r.fail[op]
}

type memOrders struct{ r *memRepos }

func (o memOrders) Create(ctx context.Context, order *model.Order) error {
	if err := o.r.injected("Orders.Create"); err != nil {
		return err
	}
	for _, ex := range o.r.s.orders {
		if ex.Reference == order.Reference {
			return repo.ErrConflict
		}
	}
	o.r.s.nextOrderSeq++
	if order.ID == "" {
		order.ID = fmt.Sprintf("order-%d", o.r.s.nextOrderSeq)
	}
	order.OrderCode = fmt.Sprintf("BiC-20260101-%d-%05d", order.CustomerID, 10000+o.r.s.nextOrderSeq)
	order.CreatedAt = time.Date(2026, 1, 1, 0, 0, o.r.s.nextOrderSeq, 0, time.UTC)
	o.r.s.orders[order.ID] = *order
	return nil
}

func (o memOrders) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	ord, ok := o.r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return ord, nil
}

func (o memOrders) FindByReference(ctx context.Context, reference string) (model.Order, error) {
	for _, ord := range o.r.s.orders {
		if ord.Reference == reference {
			return ord, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (o memOrders) ListByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error) {
	if err := o.r.injected("Orders.ListByCustomerID"); err != nil {
		return nil, err
	}
	var out []model.Order
	for _, ord := range o.r.s.orders {
		if ord.CustomerID != customerID {
			continue
		}
		ord.Items = append([]model.OrderItem(nil), o.r.s.items[ord.ID]...)
		if ord.PaymentID != nil {
			p := o.r.s.payments[*ord.PaymentID]
			ord.Payment = &p
		}
		out = append(out, ord)
	}
	//新しい順
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (o memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, ord := range o.r.s.orders {
		if f.Status == "" || string(ord.Status) == f.Status {
			out = append(out, ord)
		}
	}
	return out, int64(len(out)), nil
}

func (o memOrders) UpdateReference(ctx context.Context, orderID, oldRef, newRef string) error {
	ord, ok := o.r.s.orders[orderID]
	if !ok || ord.Reference != oldRef {
		return repo.ErrNotFound
	}
	ord.Reference = newRef
	o.r.s.orders[orderID] = ord
	return nil
}

func (o memOrders) AttachPayment(ctx context.Context, orderID string, paymentID int64) error {
	if err := o.r.injected("Orders.AttachPayment"); err != nil {
		return err
	}
	ord, ok := o.r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	ord.PaymentID = &paymentID
	o.r.s.orders[orderID] = ord
	return nil
}

func (o memOrders) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	ord, ok := o.r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	ord.Status = status
	o.r.s.orders[orderID] = ord
	return nil
}

func (o memOrders) MarkPaid(ctx context.Context, orderID string, paymentID int64) error {
	if err := o.r.injected("Orders.MarkPaid"); err != nil {
		return err
	}
	ord, ok := o.r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	ord.Status = model.OrderStatusPaid
	ord.PaymentID = &paymentID
	o.r.s.orders[orderID] = ord
	return nil
}

type memOrderItems struct{ r *memRepos }

func (i memOrderItems) CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error {
	if err := i.r.injected("OrderItems.CreateBulk"); err != nil {
		return err
	}
	for n := range items {
		items[n].ID = int64(len(i.r.s.items[orderID]) + 1)
		items[n].OrderID = orderID
		i.r.s.items[orderID] = append(i.r.s.items[orderID], items[n])
	}
	return nil
}

func (i memOrderItems) ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	return append([]model.OrderItem{}, i.r.s.items[orderID]...), nil
}

type memPayments struct{ r *memRepos }

func (p memPayments) Create(ctx context.Context, txn *model.PaymentTransaction) error {
	if err := p.r.injected("Payments.Create"); err != nil {
		return err
	}
	for _, ex := range p.r.s.payments {
		if ex.Reference == txn.Reference {
			return repo.ErrConflict
		}
	}
	p.r.s.nextPaymentID++
	txn.ID = p.r.s.nextPaymentID
	p.r.s.payments[txn.ID] = *txn
	return nil
}

func (p memPayments) FindByReference(ctx context.Context, reference string) (model.PaymentTransaction, error) {
	for _, t := range p.r.s.payments {
		if t.Reference == reference {
			return t, nil
		}
	}
	return model.PaymentTransaction{}, repo.ErrNotFound
}

func (p memPayments) MarkSuccess(ctx context.Context, id int64, gatewayAmount int64, paidAt time.Time, raw string) error {
	t, ok := p.r.s.payments[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.Status = model.PaymentStatusSuccess
	t.GatewayAmount = &gatewayAmount
	t.GatewayResponse = raw
	if t.PaidAt == nil {
		at := paidAt
		t.PaidAt = &at
	}
	p.r.s.payments[id] = t
	return nil
}

func (p memPayments) MarkPending(ctx context.Context, id int64, raw string) error {
	t, ok := p.r.s.payments[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.Status = model.PaymentStatusPending
	t.GatewayResponse = raw
	p.r.s.payments[id] = t
	return nil
}

func (p memPayments) ReassignReference(ctx context.Context, id int64, newRef string, raw string) error {
	t, ok := p.r.s.payments[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.Reference = newRef
	t.Status = model.PaymentStatusPending
	t.GatewayResponse = raw
	p.r.s.payments[id] = t
	return nil
}

type memProducts struct{ r *memRepos }

func (p memProducts) FindByID(ctx context.Context, id string) (model.Product, error) {
	if err := p.r.injected("Products.FindByID"); err != nil {
		return model.Product{}, err
	}
	prod, ok := p.r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return prod, nil
}

type memCarts struct{ r *memRepos }

func (c memCarts) ClearByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	if err := c.r.injected("Carts.ClearByCustomerID"); err != nil {
		return 0, err
	}
	n := int64(len(c.r.s.carts[customerID]))
	delete(c.r.s.carts, customerID)
	return n, nil
}

type memCoupons struct{ r *memRepos }

func (c memCoupons) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	cp, ok := c.r.s.coupons[code]
	if !ok {
		return model.Coupon{}, repo.ErrNotFound
	}
	return cp, nil
}

// =====================
// collaborators
// =====================

type fakeCustomers struct {
	byUser map[int64]model.CustomerAccount
	err    error
}

func (f *fakeCustomers) FindByUserID(ctx context.Context, userID int64) (model.CustomerAccount, error) {
	if f.err != nil {
		return model.CustomerAccount{}, f.err
	}
	c, ok := f.byUser[userID]
	if !ok {
		return model.CustomerAccount{}, repo.ErrNotFound
	}
	return c, nil
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Initialize(ctx context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(gateway.InitializeResult)
	return res, args.Error(1)
}

func (m *GatewayMock) Verify(ctx context.Context, reference string) (gateway.VerifyResult, error) {
	args := m.Called(ctx, reference)
	res, _ := args.Get(0).(gateway.VerifyResult)
	return res, args.Error(1)
}

type recordingCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []string
	getErr      error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: map[string][]byte{}}
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.invalidated = append(c.invalidated, k)
	}
	return nil
}

func (c *recordingCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []model.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.OrderEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("ref-%d", g.n)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// =====================
// fixture
// =====================

const (
	testUserID     int64 = 42
	testCustomerID int64 = 7
	callbackURL          = "http://localhost:5173/checkout/success-payment"
	pickupURL            = "http://localhost:5173/contact-us"
)

type fixture struct {
	store     *memStore
	customers *fakeCustomers
	gw        *GatewayMock
	cache     *recordingCache
	events    *recordingPublisher
	ids       *seqIDs

	checkout *usecase.CheckoutUsecase
	payments *usecase.PaymentUsecase
	queries  *usecase.OrderQueryUsecase
	admin    *usecase.AdminOrderUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: newMemStore(),
		customers: &fakeCustomers{byUser: map[int64]model.CustomerAccount{
			testUserID: {
				ID:            testCustomerID,
				UserID:        testUserID,
				Email:         "ada@example.com",
				PhoneNumber:   "0800000000",
				StreetAddress: "1 Main St",
				City:          "Accra",
				Region:        "Greater Accra",
			},
		}},
		gw:     new(GatewayMock),
		cache:  newRecordingCache(),
		events: &recordingPublisher{},
		ids:    &seqIDs{},
	}

	log := zerolog.Nop()
	clock := fixedClock{t: testNow}

	f.checkout = usecase.NewCheckoutUsecase(f.store, f.customers, f.gw, f.cache, f.events, f.ids, clock, log, usecase.CheckoutConfig{
		CallbackURL:       callbackURL,
		PickupFollowUpURL: pickupURL,
	})
	f.payments = usecase.NewPaymentUsecase(f.store, f.customers, f.gw, f.cache, f.events, f.ids, clock, log, callbackURL)
	f.queries = usecase.NewOrderQueryUsecase(f.store, f.customers, f.cache, time.Minute, log)
	f.admin = usecase.NewAdminOrderUsecase(f.store, f.cache, log)

	f.store.addProduct(product("prod-a", "12.00", "10.00"))
	f.store.addProduct(product("prod-b", "7.50", "5.00"))
	f.store.addProduct(product("prod-c", "3.25", ""))

	return f
}

func product(id, price, discount string) model.Product {
	p := model.Product{ID: id, Title: strings.ToUpper(id), Price: decimal.RequireFromString(price)}
	if discount != "" {
		p.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString(discount))
	}
	return p
}

func deliveryInput(items ...usecase.CheckoutItemInput) usecase.CheckoutInput {
	return usecase.CheckoutInput{
		Items:           items,
		OrderType:       "delivery",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Region:          "Greater Accra",
		City:            "Accra",
		PhoneNumber:     "0800000000",
		ShippingAddress: "1 Main St",
	}
}

func item(id string, qty int64) usecase.CheckoutItemInput {
	return usecase.CheckoutItemInput{ProductID: id, Quantity: qty}
}

func initOK(url string) gateway.InitializeResult {
	return gateway.InitializeResult{
		OK:               true,
		AuthorizationURL: url,
		Raw:              []byte(`{"status":true,"data":{"authorization_url":"` + url + `"}}`),
	}
}

func verifyResult(status string, minor int64) gateway.VerifyResult {
	return gateway.VerifyResult{
		OK:          true,
		Status:      status,
		AmountMinor: minor,
		Raw:         []byte(fmt.Sprintf(`{"status":true,"data":{"status":%q,"amount":%d}}`, status, minor)),
	}
}

// checkout の初期化が成功する前提で1件作る
func (f *fixture) placeDeliveryOrder(t *testing.T) usecase.CheckoutOutput {
	t.Helper()
	f.gw.On("Initialize", mock.Anything, mock.Anything).Return(initOK("https://pay.example/abc"), nil).Once()
	out, err := f.checkout.Checkout(context.Background(), testUserID, deliveryInput(item("prod-a", 2), item("prod-b", 1)))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return out
}

func assertKind(t *testing.T, err error, want usecase.ErrorKind) *usecase.HTTPError {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if !assert.True(t, ok, "expected HTTPError, got %v", err) {
		return nil
	}
	assert.Equal(t, want, he.Kind, "message=%q", he.Message)
	return he
}

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

var errBoom = errors.New("boom")

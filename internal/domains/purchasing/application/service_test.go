package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartmemory "github.com/Apurer/go-storefront-api/internal/domains/carts/adapters/memory"
	cartdomain "github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
	invmemory "github.com/Apurer/go-storefront-api/internal/domains/inventory/adapters/memory"
	invdomain "github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	notifdomain "github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	ordermemory "github.com/Apurer/go-storefront-api/internal/domains/orders/adapters/memory"
	orderdomain "github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	paydomain "github.com/Apurer/go-storefront-api/internal/domains/payments/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	usermemory "github.com/Apurer/go-storefront-api/internal/domains/users/adapters/memory"
	userdomain "github.com/Apurer/go-storefront-api/internal/domains/users/domain"
	"github.com/Apurer/go-storefront-api/internal/platform/taskqueue"
)

type stubGateway struct {
	mu        sync.Mutex
	methods   map[string]bool
	decline   bool
	authorize []paydomain.AuthorizeRequest
	refunds   []paydomain.RefundRequest
	seq       int

	onAuthorize func()
}

func newStubGateway(methods ...string) *stubGateway {
	g := &stubGateway{methods: map[string]bool{}}
	for _, m := range methods {
		g.methods[m] = true
	}
	return g
}

func (g *stubGateway) Supports(method string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.methods[method]
}

func (g *stubGateway) Authorize(_ context.Context, req paydomain.AuthorizeRequest) (paydomain.Result, error) {
	if g.onAuthorize != nil {
		g.onAuthorize()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authorize = append(g.authorize, req)
	if g.decline {
		return paydomain.Failed(paydomain.StatusDeclined, req.Amount, req.Currency, "card declined"), nil
	}
	g.seq++
	return paydomain.Succeeded(fmt.Sprintf("PAY-%d", g.seq), req.Amount, req.Currency, "ok"), nil
}

func (g *stubGateway) Refund(_ context.Context, req paydomain.RefundRequest) (paydomain.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, req)
	return paydomain.RefundResult{
		Success:          true,
		RefundReference:  "REF-" + req.PaymentReference,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Status:           paydomain.StatusSucceeded,
	}, nil
}

func (g *stubGateway) authorizeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.authorize)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notifdomain.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notifdomain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) types() []notifdomain.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifdomain.EventType, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

type failingScheduler struct{ err error }

func (s failingScheduler) Enqueue(context.Context, taskqueue.Task) error { return s.err }

// flakyOrders fails the update that marks an order paid.
type flakyOrders struct {
	*ordermemory.Repository
	failPaidUpdate bool
}

func (r *flakyOrders) Update(ctx context.Context, order *orderdomain.Order) (*orderdomain.Order, error) {
	if r.failPaidUpdate && order.Status == orderdomain.StatusPaid {
		return nil, errors.New("connection reset")
	}
	return r.Repository.Update(ctx, order)
}

// stuckFailedOrders cannot store the failed status.
type stuckFailedOrders struct {
	*ordermemory.Repository
}

func (r stuckFailedOrders) Update(ctx context.Context, order *orderdomain.Order) (*orderdomain.Order, error) {
	if order.Status == orderdomain.StatusFailed {
		return nil, errors.New("connection reset")
	}
	return r.Repository.Update(ctx, order)
}

// deadlineLedger and deadlineOrders refuse work once the context is done, the way database drivers do.
type deadlineLedger struct {
	*invmemory.Store
}

func (l deadlineLedger) Reserve(ctx context.Context, productID int64, qty int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.Store.Reserve(ctx, productID, qty)
}

func (l deadlineLedger) Release(ctx context.Context, productID int64, qty int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.Store.Release(ctx, productID, qty)
}

type deadlineOrders struct {
	*ordermemory.Repository
}

func (r deadlineOrders) Create(ctx context.Context, order *orderdomain.Order) (*orderdomain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Repository.Create(ctx, order)
}

func (r deadlineOrders) Update(ctx context.Context, order *orderdomain.Order) (*orderdomain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Repository.Update(ctx, order)
}

func (r deadlineOrders) RecordReturn(ctx context.Context, order *orderdomain.Order, ret *orderdomain.Return) (*orderdomain.Return, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Repository.RecordReturn(ctx, order, ret)
}

// stallingGateway only answers once the caller has given up.
type stallingGateway struct {
	*stubGateway
}

func (g stallingGateway) Authorize(ctx context.Context, req paydomain.AuthorizeRequest) (paydomain.Result, error) {
	<-ctx.Done()
	return paydomain.Failed(paydomain.StatusError, req.Amount, req.Currency, "backend timeout"), nil
}

// hangupGateway refunds and then the client disconnects.
type hangupGateway struct {
	*stubGateway
	hangup context.CancelFunc
}

func (g hangupGateway) Refund(ctx context.Context, req paydomain.RefundRequest) (paydomain.RefundResult, error) {
	result, err := g.stubGateway.Refund(ctx, req)
	g.hangup()
	return result, err
}

type failingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *failingNotifier) Notify(context.Context, notifdomain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return errors.New("smtp unavailable")
}

func deadlineAware(d *Dependencies) {
	d.Ledger = deadlineLedger{Store: d.Ledger.(*invmemory.Store)}
	d.Orders = deadlineOrders{Repository: d.Orders.(*ordermemory.Repository)}
}

type fixture struct {
	svc      *Service
	store    *invmemory.Store
	orders   *ordermemory.Repository
	carts    *cartmemory.Repository
	gateway  *stubGateway
	notifier *recordingNotifier
	user     *userdomain.User
	product  *invdomain.Product
}

func newFixture(t *testing.T, stock int, price string, mutate ...func(*Dependencies)) *fixture {
	t.Helper()
	ctx := context.Background()

	users := usermemory.NewRepository()
	u, err := userdomain.NewUser("ada", "ada@example.com")
	require.NoError(t, err)
	user, err := users.Create(ctx, u)
	require.NoError(t, err)

	store := invmemory.NewStore()
	p, err := invdomain.NewProduct(0, "Laptop", "LAP-1", decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	product, err := store.Save(ctx, p)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		orders:   ordermemory.NewRepository(),
		carts:    cartmemory.NewRepository(),
		gateway:  newStubGateway("credit_card", "paypal"),
		notifier: &recordingNotifier{},
		user:     user,
		product:  product,
	}
	deps := Dependencies{
		Users:    users,
		Catalog:  store,
		Ledger:   store,
		Orders:   f.orders,
		Carts:    f.carts,
		Gateway:  f.gateway,
		Notifier: f.notifier,
	}
	for _, m := range mutate {
		m(&deps)
	}
	f.svc, err = NewService(deps, WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	return f
}

func (f *fixture) request(qty int, key string) types.PurchaseRequest {
	return types.PurchaseRequest{
		UserID:         f.user.ID,
		ProductID:      f.product.ID,
		Quantity:       qty,
		PaymentMethod:  "credit_card",
		IdempotencyKey: key,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	n, err := f.store.Available(context.Background(), f.product.ID)
	require.NoError(t, err)
	return n
}

func (f *fixture) userOrders(t *testing.T) []*orderdomain.Order {
	t.Helper()
	list, err := f.orders.ListByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	return list
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users")
	assert.Contains(t, err.Error(), "gateway")
}

func TestPurchase_Success(t *testing.T) {
	f := newFixture(t, 5, "19.99")
	ctx := context.Background()
	cart, err := cartdomain.NewCart(f.user.ID)
	require.NoError(t, err)
	require.NoError(t, cart.Add(f.product.ID, 1, time.Now()))
	require.NoError(t, f.carts.Save(ctx, cart))

	receipt, err := f.svc.Purchase(ctx, f.request(2, "key-1"))
	require.NoError(t, err)

	assert.Equal(t, orderdomain.StatusPaid, receipt.Status)
	assert.Equal(t, orderdomain.PaymentPaid, receipt.PaymentStatus)
	assert.Equal(t, "39.98", receipt.TotalAmount.StringFixed(2))
	assert.Equal(t, "PAY-1", receipt.PaymentID)
	assert.Regexp(t, `^ORD-20260301-[0-9A-F]{8}$`, receipt.OrderNumber)
	assert.Equal(t, 3, f.stock(t))
	assert.Equal(t, []notifdomain.EventType{notifdomain.EventOrderPaid}, f.notifier.types())

	emptied, err := f.carts.Get(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, emptied.IsEmpty())
}

func TestPurchase_ConcurrentPurchasesBothSucceed(t *testing.T) {
	f := newFixture(t, 10, "5.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Purchase(context.Background(), f.request(3, fmt.Sprintf("concurrent-%d", i)))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 4, f.stock(t))
	assert.Len(t, f.userOrders(t), 2)
}

func TestPurchase_InsufficientStockLeavesNoOrder(t *testing.T) {
	f := newFixture(t, 2, "5.00")

	_, err := f.svc.Purchase(context.Background(), f.request(3, "key-b"))
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, invdomain.ErrInsufficientStock)
	assert.Equal(t, 2, f.stock(t))
	assert.Empty(t, f.userOrders(t))
	assert.Zero(t, f.gateway.authorizeCount())
}

func TestPurchase_DeclineRestoresStock(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	f.gateway.decline = true

	_, err := f.svc.Purchase(context.Background(), f.request(2, "key-c"))
	require.Error(t, err)
	assert.Equal(t, KindPaymentDeclined, KindOf(err))
	assert.Equal(t, 5, f.stock(t))

	orders := f.userOrders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, orderdomain.StatusFailed, orders[0].Status)
	assert.Equal(t, orderdomain.PaymentFailed, orders[0].PaymentStatus)
	assert.Empty(t, f.notifier.types())
}

func TestPurchase_UnsupportedMethod(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	req := f.request(1, "key-d")
	req.PaymentMethod = "unknown_method"

	_, err := f.svc.Purchase(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedPaymentMethod, KindOf(err))
	assert.Equal(t, 5, f.stock(t))
	assert.Empty(t, f.userOrders(t))
}

func TestPurchase_NotFoundAndInvalidInput(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	ctx := context.Background()

	req := f.request(1, "")
	req.ProductID = 999
	_, err := f.svc.Purchase(ctx, req)
	assert.Equal(t, KindNotFound, KindOf(err))

	req = f.request(1, "")
	req.UserID = 999
	_, err = f.svc.Purchase(ctx, req)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.svc.Purchase(ctx, f.request(0, ""))
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.ErrorIs(t, err, types.ErrInvalidQuantity)
	assert.Equal(t, 5, f.stock(t))
}

func TestPurchase_ReplaysByIdempotencyKey(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	ctx := context.Background()

	first, err := f.svc.Purchase(ctx, f.request(1, "same-key"))
	require.NoError(t, err)
	second, err := f.svc.Purchase(ctx, f.request(1, "same-key"))
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 4, f.stock(t))
	assert.Equal(t, 1, f.gateway.authorizeCount())
}

func TestPurchase_ReplayOfFailedPurchaseIsDeclined(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	f.gateway.decline = true
	ctx := context.Background()

	_, err := f.svc.Purchase(ctx, f.request(1, "declined-key"))
	require.Error(t, err)
	f.gateway.decline = false

	_, err = f.svc.Purchase(ctx, f.request(1, "declined-key"))
	assert.Equal(t, KindPaymentDeclined, KindOf(err))
	assert.Equal(t, 1, f.gateway.authorizeCount())
}

func TestPurchase_SnapshotsUnitPrice(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	ctx := context.Background()

	receipt, err := f.svc.Purchase(ctx, f.request(1, "snap"))
	require.NoError(t, err)

	repriced := *f.product
	repriced.Price = decimal.RequireFromString("99.00")
	_, err = f.store.Save(ctx, &repriced)
	require.NoError(t, err)

	view, err := f.svc.GetOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "10.00", view.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "10.00", view.TotalAmount.StringFixed(2))
}

func TestPurchase_CompensatesWhenPaidOrderCannotBeSaved(t *testing.T) {
	var flaky *flakyOrders
	f := newFixture(t, 5, "10.00", func(d *Dependencies) {
		flaky = &flakyOrders{Repository: ordermemory.NewRepository(), failPaidUpdate: true}
		d.Orders = flaky
	})
	ctx := context.Background()

	_, err := f.svc.Purchase(ctx, f.request(2, "orphan"))
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, 5, f.stock(t))

	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, "orphan:compensate", f.gateway.refunds[0].IdempotencyKey)
	assert.Equal(t, "credit_card", f.gateway.refunds[0].Method)
	assert.Equal(t, "PAY-1", f.gateway.refunds[0].PaymentReference)

	order, err := flaky.GetByIdempotencyKey(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusFailed, order.Status)
}

func TestPurchase_CallerDeadlineStillCompensates(t *testing.T) {
	f := newFixture(t, 5, "10.00", deadlineAware, func(d *Dependencies) {
		d.Gateway = stallingGateway{stubGateway: d.Gateway.(*stubGateway)}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.svc.Purchase(ctx, f.request(2, "slow"))
	require.Error(t, err)
	assert.Equal(t, KindPaymentDeclined, KindOf(err))
	assert.Equal(t, 5, f.stock(t))

	orders := f.userOrders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, orderdomain.StatusFailed, orders[0].Status)
}

func TestPurchase_UnsavedFailureKeepsReservationForCancel(t *testing.T) {
	f := newFixture(t, 5, "10.00", func(d *Dependencies) {
		d.Orders = stuckFailedOrders{Repository: d.Orders.(*ordermemory.Repository)}
	})
	f.gateway.decline = true
	ctx := context.Background()

	_, err := f.svc.Purchase(ctx, f.request(2, "stuck"))
	require.Error(t, err)
	assert.Equal(t, KindPaymentDeclined, KindOf(err))
	assert.Equal(t, 3, f.stock(t))

	orders := f.userOrders(t)
	require.Len(t, orders, 1)
	require.Equal(t, orderdomain.StatusCreated, orders[0].Status)

	view, err := f.svc.CancelOrder(ctx, orders[0].ID, "reconciled")
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCancelled, view.Status)
	assert.Equal(t, 5, f.stock(t))
	assert.Empty(t, f.gateway.refunds)
}

func TestPurchase_CancelDuringAuthorizeReleasesOnce(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	f.gateway.decline = true
	ctx := context.Background()
	f.gateway.onAuthorize = func() {
		orders := f.userOrders(t)
		require.Len(t, orders, 1)
		_, err := f.svc.CancelOrder(ctx, orders[0].ID, "buyer left")
		require.NoError(t, err)
	}

	_, err := f.svc.Purchase(ctx, f.request(2, "raced"))
	require.Error(t, err)
	assert.Equal(t, KindPaymentDeclined, KindOf(err))
	assert.Equal(t, 5, f.stock(t))

	orders := f.userOrders(t)
	require.Len(t, orders, 1)
	assert.Equal(t, orderdomain.StatusCancelled, orders[0].Status)
}

func TestNotificationFailuresDoNotFailTheSaga(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Dependencies)
	}{
		{
			name:   "notifier error",
			mutate: func(d *Dependencies) { d.Notifier = &failingNotifier{} },
		},
		{
			name:   "queue full",
			mutate: func(d *Dependencies) { d.Scheduler = failingScheduler{err: taskqueue.ErrQueueFull} },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 5, "10.00", tc.mutate)
			ctx := context.Background()

			receipt, err := f.svc.Purchase(ctx, f.request(2, "notify-"+tc.name))
			require.NoError(t, err)
			assert.Equal(t, orderdomain.StatusPaid, receipt.Status)
			assert.Equal(t, 3, f.stock(t))

			_, err = f.svc.ShipOrder(ctx, receipt.OrderID, "TRK-9")
			require.NoError(t, err)
			delivered, err := f.svc.DeliverOrder(ctx, receipt.OrderID)
			require.NoError(t, err)

			ret, err := f.svc.ProcessReturn(ctx, receipt.OrderID, delivered.Items[0].ID, "unwanted")
			require.NoError(t, err)
			assert.Equal(t, orderdomain.StatusReturned, ret.OrderStatus)
			assert.Equal(t, "20.00", ret.RefundedAmount.StringFixed(2))
			assert.Equal(t, 5, f.stock(t))

			view, err := f.svc.GetOrder(ctx, receipt.OrderID)
			require.NoError(t, err)
			assert.Equal(t, orderdomain.StatusReturned, view.Status)
			assert.Empty(t, f.notifier.types())
		})
	}
}

func TestProcessReturn_DeliveredOrderRestoresStock(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()

	receipt, err := f.svc.Purchase(ctx, f.request(2, "key-ret"))
	require.NoError(t, err)
	_, err = f.svc.ShipOrder(ctx, receipt.OrderID, "TRK-42")
	require.NoError(t, err)
	delivered, err := f.svc.DeliverOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusDelivered, delivered.Status)
	require.Equal(t, 8, f.stock(t))

	itemID := delivered.Items[0].ID
	ret, err := f.svc.ProcessReturn(ctx, receipt.OrderID, itemID, "damaged")
	require.NoError(t, err)
	assert.Equal(t, "100.00", ret.RefundedAmount.StringFixed(2))
	assert.Equal(t, "REF-PAY-1", ret.RefundReference)
	assert.Equal(t, orderdomain.StatusReturned, ret.OrderStatus)
	assert.Equal(t, 10, f.stock(t))

	view, err := f.svc.GetOrder(ctx, receipt.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusReturned, view.Status)
	assert.Equal(t, orderdomain.PaymentRefunded, view.PaymentStatus)

	_, err = f.svc.ProcessReturn(ctx, receipt.OrderID, itemID, "again")
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
	assert.Equal(t, 10, f.stock(t))

	assert.Equal(t, []notifdomain.EventType{
		notifdomain.EventOrderPaid,
		notifdomain.EventOrderShipped,
		notifdomain.EventOrderDelivered,
		notifdomain.EventOrderReturned,
	}, f.notifier.types())
}

func TestProcessReturn_RequiresDeliveredOrderAndKnownItem(t *testing.T) {
	f := newFixture(t, 10, "50.00")
	ctx := context.Background()

	receipt, err := f.svc.Purchase(ctx, f.request(1, "key-r"))
	require.NoError(t, err)

	_, err = f.svc.ProcessReturn(ctx, receipt.OrderID, 1, "too early")
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
	assert.Empty(t, f.gateway.refunds)

	_, err = f.svc.ShipOrder(ctx, receipt.OrderID, "TRK")
	require.NoError(t, err)
	_, err = f.svc.DeliverOrder(ctx, receipt.OrderID)
	require.NoError(t, err)

	_, err = f.svc.ProcessReturn(ctx, receipt.OrderID, 999, "wrong item")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.svc.ProcessReturn(ctx, 999, 1, "no order")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCancelOrder_RefundsPaidOrderAndReleasesStock(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	ctx := context.Background()

	receipt, err := f.svc.Purchase(ctx, f.request(3, "key-x"))
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t))

	view, err := f.svc.CancelOrder(ctx, receipt.OrderID, "changed mind")
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCancelled, view.Status)
	assert.Equal(t, orderdomain.PaymentRefunded, view.PaymentStatus)
	assert.Equal(t, 5, f.stock(t))
	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, "key-x:cancel", f.gateway.refunds[0].IdempotencyKey)

	_, err = f.svc.CancelOrder(ctx, receipt.OrderID, "twice")
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
	assert.Equal(t, 5, f.stock(t))
}

func TestCancelOrder_ClientGoneAfterRefundStillReleases(t *testing.T) {
	ctx, hangup := context.WithCancel(context.Background())
	defer hangup()
	f := newFixture(t, 5, "10.00", deadlineAware, func(d *Dependencies) {
		d.Gateway = hangupGateway{stubGateway: d.Gateway.(*stubGateway), hangup: hangup}
	})

	receipt, err := f.svc.Purchase(context.Background(), f.request(3, "key-gone"))
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t))

	view, err := f.svc.CancelOrder(ctx, receipt.OrderID, "closed tab")
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, orderdomain.StatusCancelled, view.Status)
	assert.Equal(t, orderdomain.PaymentRefunded, view.PaymentStatus)
	assert.Equal(t, 5, f.stock(t))
}

func TestProcessReturn_ClientGoneAfterRefundStillRestocks(t *testing.T) {
	ctx, hangup := context.WithCancel(context.Background())
	defer hangup()
	f := newFixture(t, 5, "10.00", deadlineAware, func(d *Dependencies) {
		d.Gateway = hangupGateway{stubGateway: d.Gateway.(*stubGateway), hangup: hangup}
	})
	bg := context.Background()

	receipt, err := f.svc.Purchase(bg, f.request(2, "key-ret-gone"))
	require.NoError(t, err)
	_, err = f.svc.ShipOrder(bg, receipt.OrderID, "TRK-7")
	require.NoError(t, err)
	delivered, err := f.svc.DeliverOrder(bg, receipt.OrderID)
	require.NoError(t, err)

	ret, err := f.svc.ProcessReturn(ctx, receipt.OrderID, delivered.Items[0].ID, "closed tab")
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, orderdomain.StatusReturned, ret.OrderStatus)
	assert.Equal(t, 5, f.stock(t))

	returns, err := f.orders.ListReturns(bg, receipt.OrderID)
	require.NoError(t, err)
	assert.Len(t, returns, 1)
}

func TestShipOrder_RejectsUnpaidTransition(t *testing.T) {
	f := newFixture(t, 5, "10.00")
	ctx := context.Background()

	receipt, err := f.svc.Purchase(ctx, f.request(1, "key-s"))
	require.NoError(t, err)

	_, err = f.svc.DeliverOrder(ctx, receipt.OrderID)
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))

	shipped, err := f.svc.ShipOrder(ctx, receipt.OrderID, "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", shipped.TrackingNumber)

	_, err = f.svc.ShipOrder(ctx, receipt.OrderID, "TRK-2")
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
}

func TestScheduleOrderStats(t *testing.T) {
	t.Run("queue full surfaces to caller", func(t *testing.T) {
		f := newFixture(t, 5, "10.00", func(d *Dependencies) {
			d.Scheduler = failingScheduler{err: taskqueue.ErrQueueFull}
		})
		_, err := f.svc.ScheduleOrderStats(context.Background(), f.user.ID)
		assert.Equal(t, KindQueueFull, KindOf(err))
		assert.ErrorIs(t, err, taskqueue.ErrQueueFull)
	})

	t.Run("task computes paid order stats", func(t *testing.T) {
		queue := taskqueue.New(4, taskqueue.WithWorkers(1))
		f := newFixture(t, 10, "10.00", func(d *Dependencies) {
			d.Scheduler = queue
		})
		ctx := context.Background()

		_, err := f.svc.Purchase(ctx, f.request(1, "s-1"))
		require.NoError(t, err)
		_, err = f.svc.Purchase(ctx, f.request(2, "s-2"))
		require.NoError(t, err)

		ticket, err := f.svc.ScheduleOrderStats(ctx, f.user.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, ticket.TaskID)

		require.NoError(t, queue.Start(ctx))
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, queue.Stop(stopCtx))

		f.notifier.mu.Lock()
		defer f.notifier.mu.Unlock()
		var stats *notifdomain.Message
		for i := range f.notifier.messages {
			if f.notifier.messages[i].Type == notifdomain.EventOrderStats {
				stats = &f.notifier.messages[i]
			}
		}
		require.NotNil(t, stats)
		assert.Equal(t, "2", stats.Attributes["orders.total"])
		assert.Equal(t, "30.00", stats.Attributes["orders.spent"])
		assert.Equal(t, "15.00", stats.Attributes["orders.average"])
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t, 5, "10.00")
		_, err := f.svc.ScheduleOrderStats(context.Background(), 999)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindAlreadyPaid, KindOf(fmt.Errorf("wrapped: %w", orderdomain.ErrAlreadyPaid)))

	err := NewError(Kind("bogus"), "op", "msg", nil)
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, "op: msg", err.Error())
}

package grpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"

	"store_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// mockOrders implements the order use case methods the gRPC service calls.
type mockOrders struct {
	mock.Mock
	domain.OrderUseCase
}

func (m *mockOrders) result(args mock.Arguments) (*domain.Order, error) {
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockOrders) GetOrderByID(ctx context.Context, id int) (*domain.Order, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockOrders) MarkAsPaid(ctx context.Context, id int) (*domain.Order, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockOrders) Cancel(ctx context.Context, id int, reason string, restock bool) (*domain.Order, error) {
	return m.result(m.Called(ctx, id, reason, restock))
}

func (m *mockOrders) UpdateStatus(ctx context.Context, id int, target domain.OrderStatus, tracking string) (*domain.Order, error) {
	return m.result(m.Called(ctx, id, target, tracking))
}

func startServer(t *testing.T, uc domain.OrderUseCase) *grpc.ClientConn {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	lis := bufconn.Listen(1 << 20)
	server, _ := NewServer(uc, logger)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sampleOrder(status domain.OrderStatus) *domain.Order {
	productID := 4
	return &domain.Order{
		ID:          9,
		OrderNumber: "ORD-20240101-ABCDEF12",
		UserID:      2,
		Status:      status,
		TotalPrice:  decimal.RequireFromString("20.00"),
		TaxAmount:   decimal.RequireFromString("2.00"),
		Items: []domain.OrderItem{
			{ID: 1, ProductID: &productID, ProductName: "Mouse", Price: decimal.RequireFromString("10.00"), Quantity: 2},
			{ID: 2, ProductName: "Retired cable", Price: decimal.Zero, Quantity: 1},
		},
	}
}

func TestGetOrderAndHealth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	uc := &mockOrders{}
	uc.On("GetOrderByID", mock.Anything, 9).Return(sampleOrder(domain.StatusPending), nil)
	uc.On("GetOrderByID", mock.Anything, 10).Return(nil, fmt.Errorf("%w: order with id 10", domain.ErrOrderNotFound))
	conn := startServer(t, uc)
	client := NewOrderClient(conn)

	out, err := client.GetOrder(ctx, 9)
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, "PENDING", fields["status"])
	assert.Equal(t, "22.00", fields["grand_total"])
	items := fields["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, float64(4), items[0].(map[string]interface{})["product_id"])
	assert.Nil(t, items[1].(map[string]interface{})["product_id"])

	_, err = client.GetOrder(ctx, 10)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetOrder(ctx, 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestLifecycleCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	uc := &mockOrders{}
	uc.On("MarkAsPaid", mock.Anything, 9).Return(sampleOrder(domain.StatusPaid), nil).Once()
	uc.On("MarkAsPaid", mock.Anything, 9).Return(nil, fmt.Errorf("%w: order 9", domain.ErrInvalidTransition)).Once()
	uc.On("Cancel", mock.Anything, 9, "fraud", false).Return(sampleOrder(domain.StatusCancelled), nil).Once()
	uc.On("UpdateStatus", mock.Anything, 9, domain.StatusShipped, "TRK-1").Return(sampleOrder(domain.StatusShipped), nil).Once()
	uc.On("GetOrderByID", mock.Anything, 9).Return(sampleOrder(domain.StatusPaid), nil)
	conn := startServer(t, uc)
	client := NewOrderClient(conn)

	out, err := client.MarkAsPaid(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "PAID", out.AsMap()["status"])

	_, err = client.MarkAsPaid(ctx, 9)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	out, err = client.Cancel(ctx, 9, "fraud", false)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.AsMap()["status"])

	out, err = client.UpdateStatus(ctx, 9, "SHIPPED", "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", out.AsMap()["status"])

	_, err = client.UpdateStatus(ctx, 9, "", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	out, err = client.AvailableTransitions(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"PROCESSING", "CANCELLED", "REFUNDED"}, out.AsMap()["transitions"])

	uc.AssertExpectations(t)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	t.Parallel()

	err := mapDomainError(fmt.Errorf("pq: relation \"orders\" does not exist"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, status.Convert(err).Message(), "pq")
}

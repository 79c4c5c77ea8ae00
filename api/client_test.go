package api_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evmarket/carbonview/api"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures the last round trip and feeds back a canned
// response through the out pointer.
type recordingTransport struct {
	method  string
	path    string
	body    any
	respond func(out any)
	err     error
}

func (t *recordingTransport) Do(ctx context.Context, method, path string, body, out any) error {
	t.method = method
	t.path = path
	t.body = body
	if t.err != nil {
		return t.err
	}
	if t.respond != nil && out != nil {
		t.respond(out)
	}
	return nil
}

func TestNewClientRequiresTransport(t *testing.T) {
	assert.Panics(t, func() { api.NewClient(nil) })
}

func TestJourneysHitsOwnerCollection(t *testing.T) {
	transport := &recordingTransport{
		respond: func(out any) {
			journeys := out.(*[]api.Journey)
			*journeys = []api.Journey{{DistanceKM: 42}}
		},
	}
	client := api.NewClient(transport)

	journeys, err := client.Journeys(context.Background())
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, "GET", transport.method)
	assert.Equal(t, "/journeys", transport.path)
	assert.Nil(t, transport.body)
}

func TestCreateJourneySendsInput(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	in := api.JourneyInput{DistanceKM: 120.5}
	_, err := client.CreateJourney(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "POST", transport.method)
	assert.Equal(t, "/journeys", transport.path)
	sent, ok := transport.body.(api.JourneyInput)
	require.True(t, ok)
	assert.Equal(t, 120.5, sent.DistanceKM)
}

func TestSellCreditBuildsNestedPath(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	creditID := uuid.MustParse("5a8e3f0e-7c71-4b9f-9f1d-06d2b7a51c01")
	_, err := client.SellCredit(context.Background(), creditID, 1800)
	require.NoError(t, err)

	assert.Equal(t, "POST", transport.method)
	assert.Equal(t, "/credits/5a8e3f0e-7c71-4b9f-9f1d-06d2b7a51c01/listings", transport.path)

	payload, ok := transport.body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1800), payload["price_cents"])
}

func TestListingsEncodesFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter api.ListingFilter
		path   string
	}{
		{"no filter", api.ListingFilter{}, "/listings"},
		{"max price", api.ListingFilter{MaxPriceCents: 2500}, "/listings?max_price_cents=2500"},
		{"min amount", api.ListingFilter{MinAmountKg: 12.5}, "/listings?min_amount_kg=12.5"},
		{
			"combined",
			api.ListingFilter{MaxPriceCents: 2500, MinAmountKg: 10, Status: "OPEN"},
			"/listings?max_price_cents=2500&min_amount_kg=10&status=OPEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &recordingTransport{}
			client := api.NewClient(transport)

			_, err := client.Listings(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.path, transport.path)
		})
	}
}

func TestPurchasePostsWithoutBody(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	listingID := uuid.MustParse("0b54a9ce-93b1-4a56-8f7c-3a5b7c11d202")
	_, err := client.Purchase(context.Background(), listingID)
	require.NoError(t, err)

	assert.Equal(t, "POST", transport.method)
	assert.Equal(t, "/listings/0b54a9ce-93b1-4a56-8f7c-3a5b7c11d202/purchase", transport.path)
	assert.Nil(t, transport.body)
}

func TestOpenDisputeSendsReason(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	txnID := uuid.New()
	_, err := client.OpenDispute(context.Background(), txnID, "credit never delivered")
	require.NoError(t, err)

	payload, ok := transport.body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "credit never delivered", payload["reason"])
}

func TestReviewJourneyHitsVerificationSurface(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	journeyID := uuid.MustParse("91c2ad77-2f55-44d1-8a5e-5c2a61a7b303")
	_, err := client.ReviewJourney(context.Background(), journeyID, api.ReviewInput{
		Approve: true,
		Note:    "looks clean",
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", transport.method)
	assert.Equal(t, "/verification/journeys/91c2ad77-2f55-44d1-8a5e-5c2a61a7b303", transport.path)
}

func TestSetUserStatusUsesPut(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	userID := uuid.MustParse("77f3b0aa-11d0-4f35-9f7a-8d1c24e5f404")
	require.NoError(t, client.SetUserStatus(context.Background(), userID, "SUSPENDED"))

	assert.Equal(t, "PUT", transport.method)
	assert.Equal(t, "/admin/users/77f3b0aa-11d0-4f35-9f7a-8d1c24e5f404/status", transport.path)

	payload, ok := transport.body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SUSPENDED", payload["status"])
}

func TestResolveDisputeSendsVerdict(t *testing.T) {
	transport := &recordingTransport{}
	client := api.NewClient(transport)

	disputeID := uuid.New()
	_, err := client.ResolveDispute(context.Background(), disputeID, "refund issued", true)
	require.NoError(t, err)

	payload, ok := transport.body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "refund issued", payload["resolution"])
	assert.Equal(t, true, payload["uphold"])
}

func TestTransportErrorsPropagate(t *testing.T) {
	failure := errors.New("platform unreachable")
	transport := &recordingTransport{err: failure}
	client := api.NewClient(transport)

	_, err := client.Wallet(context.Background())
	require.ErrorIs(t, err, failure)

	_, err = client.Report(context.Background())
	require.ErrorIs(t, err, failure)
}

package kompello_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/kompello/kompellotest"
)

func TestNewClientRequiresAbsoluteURL(t *testing.T) {
	_, err := kompello.NewClient(kompello.Options{})
	assert.Error(t, err)

	_, err = kompello.NewClient(kompello.Options{BaseURL: "/relative"})
	assert.Error(t, err)

	client, err := kompello.NewClient(kompello.Options{BaseURL: "http://localhost:8000"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", client.BaseURL())
}

func TestSessionLifecycle(t *testing.T) {
	fake := kompellotest.New(t)
	fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{FirstName: "Ada", LastName: "Lovelace", IsActive: true})
	client := fake.NewClient(t)
	ctx := context.Background()

	err := client.Session(ctx)
	require.Error(t, err)
	assert.True(t, kompello.IsUnauthorized(err))

	err = client.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, kompello.IsValidation(err))
	assert.Contains(t, kompello.FieldErrors(err)["password"], "not correct")

	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))
	require.NoError(t, client.Session(ctx))

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "Ada", me.FirstName)

	require.NoError(t, client.Logout(ctx))
	assert.True(t, kompello.IsUnauthorized(client.Session(ctx)))
}

func TestLogoutFailureIsReported(t *testing.T) {
	fake := kompellotest.New(t)
	fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	client := fake.NewClient(t)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))
	fake.FailLogout.Store(true)

	err := client.Logout(ctx)
	require.Error(t, err)
	assert.False(t, kompello.IsUnauthorized(err))
}

func TestUnsafeRequestsCarryCSRFToken(t *testing.T) {
	fake := kompellotest.New(t)
	user := fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, user)
	client := fake.NewClient(t)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))
	created, err := client.CreateUnit(ctx, kompello.Unit{Company: company.UUID, ShortName: "h", LongName: "Hour"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UUID)

	_, err = client.CreateUnit(ctx, kompello.Unit{Company: company.UUID, ShortName: "h", LongName: "Hour"})
	require.Error(t, err)
	assert.True(t, kompello.IsValidation(err))
	assert.Contains(t, kompello.FieldErrors(err), "short_name")

	units, err := client.Units(ctx, company.UUID)
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestCSRFTokenFetchesAreCoalesced(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"csrfToken":"abc"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := kompello.NewClient(kompello.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := client.CSRFToken(context.Background())
			if err == nil {
				tokens <- token
			}
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(tokens)

	assert.Equal(t, int64(1), calls.Load())
	count := 0
	for token := range tokens {
		assert.Equal(t, "abc", token)
		count++
	}
	assert.Equal(t, callers, count)
}

func TestListAcceptsPaginatedEnvelope(t *testing.T) {
	fake := kompellotest.New(t)
	user := fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, user)
	fake.AddCustomer(kompello.Customer{Company: company.UUID, Firstname: "Grace", IsActive: true})
	fake.AddCustomer(kompello.Customer{Company: company.UUID, Firstname: "Linus", IsActive: false})
	client := fake.NewClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))

	all, err := client.Customers(ctx, kompello.CustomerFilter{CompanyID: company.UUID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := true
	onlyActive, err := client.Customers(ctx, kompello.CustomerFilter{CompanyID: company.UUID, IsActive: &active})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, "Grace", onlyActive[0].Firstname)
}

func TestNotFound(t *testing.T) {
	fake := kompellotest.New(t)
	fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	client := fake.NewClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))

	_, err := client.Item(ctx, "missing")
	require.Error(t, err)
	assert.True(t, kompello.IsNotFound(err))
	assert.Contains(t, err.Error(), "get item")
}

func TestUpdateItemCustomFields(t *testing.T) {
	fake := kompellotest.New(t)
	user := fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, user)
	item := fake.AddItem(kompello.Item{Company: company.UUID, Name: "Consulting", CustomFields: map[string]any{"sku": "C-1", "legacy": true}})
	client := fake.NewClient(t)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))
	updated, err := client.UpdateItemCustomFields(ctx, item.UUID, map[string]any{"sku": "C-2", "legacy": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sku": "C-2"}, updated.CustomFields)

	stored, ok := fake.Item(item.UUID)
	require.True(t, ok)
	assert.Equal(t, "C-2", stored.CustomFields["sku"])
}

func TestItemWrites(t *testing.T) {
	fake := kompellotest.New(t)
	user := fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, user)
	unit := fake.AddUnit(kompello.Unit{Company: company.UUID, ShortName: "h"})
	eur := fake.AddCurrency(kompello.Currency{Company: company.UUID, Symbol: "€", ShortName: "EUR"})
	client := fake.NewClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))

	priceMax := "90"
	_, err := client.CreateItem(ctx, kompello.ItemInput{Company: company.UUID, Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "100", PriceMax: &priceMax})
	require.Error(t, err)
	assert.True(t, kompello.IsValidation(err))
	assert.Contains(t, kompello.FieldErrors(err)["price_max"], "greater than or equal")

	priceMax = "150"
	item, err := client.CreateItem(ctx, kompello.ItemInput{Company: company.UUID, Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "100", PriceMax: &priceMax})
	require.NoError(t, err)
	assert.Equal(t, "h", item.UnitShortName)
	require.NotNil(t, item.PriceMax)

	updated, err := client.UpdateItem(ctx, item.UUID, kompello.ItemInput{Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "110"})
	require.NoError(t, err)
	assert.Equal(t, "110", updated.PricePerUnit)
	assert.Nil(t, updated.PriceMax, "a nil maximum is sent as null")
}

func TestCustomFieldWrites(t *testing.T) {
	fake := kompellotest.New(t)
	user := fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, user)
	client := fake.NewClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))

	in := kompello.CustomFieldInput{Key: "sku", Name: "SKU", DataType: 1, ModelType: 7, Company: company.UUID, ShowInUI: true}
	require.NoError(t, client.CreateCustomField(ctx, in))
	defs := fake.CustomFields()
	require.Len(t, defs, 1)
	assert.Equal(t, "item", defs[0].ModelType.Model)

	err := client.CreateCustomField(ctx, in)
	require.Error(t, err)
	assert.Contains(t, kompello.FieldErrors(err)["non_field_errors"], "unique set")

	fake.AddItem(kompello.Item{Company: company.UUID, Name: "Box", CustomFields: map[string]any{"sku": "B-1"}})
	in.DataType = 2
	err = client.UpdateCustomField(ctx, defs[0].UUID, in)
	require.Error(t, err)
	assert.Contains(t, kompello.FieldErrors(err)["data_type"], "Cannot change data_type")

	err = client.DeleteCustomField(ctx, defs[0].UUID)
	require.Error(t, err)
	assert.True(t, kompello.IsValidation(err))
	var apiErr *kompello.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Detail, "would result in data loss")
	assert.Len(t, fake.CustomFields(), 1)
}

func TestAccountWrites(t *testing.T) {
	fake := kompellotest.New(t)
	ada := fake.AddUser("ada@example.com", "s3cret-pass", kompello.User{FirstName: "Ada", IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, ada)
	client := fake.NewClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "ada@example.com", "s3cret-pass"))

	renamed, err := client.UpdateCompany(ctx, company.UUID, kompello.CompanyInput{Name: "Acme AG"})
	require.NoError(t, err)
	assert.Equal(t, "Acme AG", renamed.Name)

	me, err := client.UpdateUser(ctx, ada.UUID, kompello.UserInput{FirstName: "Augusta", LastName: "King", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", me.FirstName)

	require.NoError(t, client.SetPassword(ctx, ada.UUID, "analytical-engine"))
	assert.True(t, kompello.IsUnauthorized(client.Session(ctx)))
}

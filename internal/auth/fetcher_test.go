package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/kompello/kompellotest"
)

func TestFetcherWithoutSessionYieldsNil(t *testing.T) {
	fake := kompellotest.New(t)
	recorder := newCountingRecorder()
	fetcher := NewFetcher(fake.NewClient(t), nil, recorder)

	assert.Nil(t, fetcher.Check(context.Background()))
	assert.Equal(t, 1, recorder.get("check:"+CheckNoSession))
	assert.Zero(t, fake.ProfileCalls.Load())
}

func TestFetcherResolvesPrincipal(t *testing.T) {
	fake := kompellotest.New(t)
	user := fake.AddUser("alice@example.com", "s3cret", kompello.User{FirstName: "Alice", LastName: "Liddell", IsActive: true})
	client := fake.NewClient(t)
	require.NoError(t, client.Login(context.Background(), "alice@example.com", "s3cret"))

	recorder := newCountingRecorder()
	fetcher := NewFetcher(client, nil, recorder)

	first := fetcher.Check(context.Background())
	require.NotNil(t, first)
	assert.Equal(t, user.UUID, first.ID.String())
	assert.Equal(t, "Alice Liddell", first.DisplayName)

	second := fetcher.Check(context.Background())
	assert.Equal(t, first, second, "repeated checks on an unchanged session agree")
	assert.Equal(t, 2, recorder.get("check:"+CheckOK))
}

func TestFetcherProfileFailure(t *testing.T) {
	fake := kompellotest.New(t)
	fake.AddUser("alice@example.com", "s3cret", kompello.User{IsActive: true})
	client := fake.NewClient(t)
	require.NoError(t, client.Login(context.Background(), "alice@example.com", "s3cret"))
	fake.FailProfile.Store(true)

	recorder := newCountingRecorder()
	assert.Nil(t, NewFetcher(client, nil, recorder).Check(context.Background()))
	assert.Equal(t, 1, recorder.get("check:"+CheckProfileFailed))
}

func TestFetcherRejectsInactiveAccount(t *testing.T) {
	fake := kompellotest.New(t)
	fake.AddUser("bob@example.com", "s3cret", kompello.User{IsActive: false})
	client := fake.NewClient(t)
	require.NoError(t, client.Login(context.Background(), "bob@example.com", "s3cret"))

	recorder := newCountingRecorder()
	assert.Nil(t, NewFetcher(client, nil, recorder).Check(context.Background()))
	assert.Equal(t, 1, recorder.get("check:"+CheckInvalidProfile))
}

func TestPrincipalFromProfile(t *testing.T) {
	v := NewFetcher(nil, nil, nil).validate

	p, err := principalFromProfile(v, &kompello.User{UUID: "6f1c1f9e-2c1b-4b8e-9b7a-0c5d3c7f9a11", Email: "carol@example.com", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", p.DisplayName, "email stands in for a missing name")

	_, err = principalFromProfile(v, &kompello.User{UUID: "not-a-uuid", Email: "carol@example.com", IsActive: true})
	assert.Error(t, err)

	_, err = principalFromProfile(v, &kompello.User{UUID: "6f1c1f9e-2c1b-4b8e-9b7a-0c5d3c7f9a11", Email: "carol", IsActive: true})
	assert.Error(t, err)

	_, err = principalFromProfile(v, nil)
	assert.Error(t, err)
}

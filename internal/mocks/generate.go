// Package mocks provides gomock implementations of the auth ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	fetcher := mocks.NewMockRoleFetcher(ctrl)
//	fetcher.EXPECT().FetchRoles(gomock.Any(), "A1").Return(roles, nil)
//
// Hand-written doubles with canned behavior live in internal/mocks/auth.
package mocks

// Generate mocks for the ports consumed by the session controller and role registry:
// DirectoryClient, IdentityProvider, RoleFetcher, SessionStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/rolegate/internal/ports DirectoryClient,IdentityProvider,RoleFetcher,SessionStore

package gateway

import (
	"fmt"
	"sort"

	"paygrid.io/app/internal/shared/apperr"
)

// Constructor builds an adapter from decrypted credentials.
type Constructor func(creds Credentials, testMode bool) (Adapter, error)

// Registry maps provider names to adapter constructors. Adding a provider
// means registering a constructor, not editing a dispatch switch. Instances
// are independent so tests can build isolated registries.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry returns a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{ctors: map[string]Constructor{}}
	r.Register(CardnetName, NewCardnet)
	r.Register(WalletpayName, NewWalletpay)
	return r
}

func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[name] = ctor
}

func (r *Registry) New(name string, creds Credentials, testMode bool) (Adapter, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, apperr.UnsupportedErr(fmt.Sprintf("unsupported payment gateway: %s", name))
	}
	return ctor(creds, testMode)
}

func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package dispatch

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	globalMu      sync.Mutex
	globalDomains = make(map[reflect.Type]any)
)

// Global returns the process-wide domain for the (S, A) pair, creating it
// on first use. Every distinct pair gets its own domain; the domains live
// for the rest of the process. Prefer NewDomain where the domain can be
// passed explicitly.
func Global[S comparable, A any]() *Domain[S, A] {
	key := reflect.TypeOf((**Domain[S, A])(nil)).Elem()

	globalMu.Lock()
	defer globalMu.Unlock()
	if d, ok := globalDomains[key]; ok {
		return d.(*Domain[S, A])
	}
	d := NewDomain[S, A](WithName(fmt.Sprintf("global[%v,%v]", reflect.TypeOf((*S)(nil)).Elem(), reflect.TypeOf((*A)(nil)).Elem())))
	globalDomains[key] = d
	return d
}

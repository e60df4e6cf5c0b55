package elastic_search

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/config"
)

type Indices string

var (
	BillingRunIndex Indices = "billing_runs"
	ChargeIndex     Indices = "charges"
)

// Sets the network and returns the full string
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}

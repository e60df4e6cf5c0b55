package entity

import (
	"fmt"
	"github.com/ZilDuck/membership-market/internal/dev"
	"github.com/gosimple/slug"
	"time"
)

// BillingRun is the durable record of one scheduler cycle.
type BillingRun struct {
	Id             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	FinishedAt     time.Time     `json:"finishedAt"`
	Period         time.Duration `json:"period"`
	ChargedMembers Accounts      `json:"chargedMembers"`
	ChargedNFTIds  []uint64      `json:"chargedNFTIds"`
	LostMembers    Accounts      `json:"lostMembers"`
	BurntNFTs      []uint64      `json:"burntNFTs"`
	Skipped        []uint64      `json:"skipped"`
	Failures       []dev.Error   `json:"failures"`
	Cancelled      bool          `json:"cancelled"`
}

func (r BillingRun) Slug() string {
	return slug.Make(fmt.Sprintf("billing-run-%s", r.Id))
}

func NewBillingRun(id string, at time.Time, period time.Duration) BillingRun {
	return BillingRun{
		Id:             id,
		Timestamp:      at,
		Period:         period,
		ChargedMembers: Accounts{},
		ChargedNFTIds:  []uint64{},
		LostMembers:    Accounts{},
		BurntNFTs:      []uint64{},
		Skipped:        []uint64{},
		Failures:       []dev.Error{},
	}
}

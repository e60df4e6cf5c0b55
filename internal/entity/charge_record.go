package entity

import (
	"fmt"
	"github.com/gosimple/slug"
	"time"
)

// ChargeRecord is one asset's outcome within a billing run, indexed next to
// the run for per-member history.
type ChargeRecord struct {
	RunId   string        `json:"runId"`
	AssetId uint64        `json:"assetId"`
	Owner   Account       `json:"owner"`
	Outcome ChargeOutcome `json:"outcome"`
	At      time.Time     `json:"at"`
}

func (c ChargeRecord) Slug() string {
	return slug.Make(fmt.Sprintf("charge-%s-%d", c.RunId, c.AssetId))
}

// Records flattens a run into charge records. Charged members pair with their
// asset ids by position.
func (r BillingRun) Records() []ChargeRecord {
	records := make([]ChargeRecord, 0, len(r.ChargedNFTIds)+len(r.BurntNFTs))
	for i, id := range r.ChargedNFTIds {
		owner := NoAccount
		if i < len(r.ChargedMembers) {
			owner = r.ChargedMembers[i]
		}
		records = append(records, ChargeRecord{RunId: r.Id, AssetId: id, Owner: owner, Outcome: Charged, At: r.Timestamp})
	}
	for _, id := range r.BurntNFTs {
		records = append(records, ChargeRecord{RunId: r.Id, AssetId: id, Outcome: BurnedForNonPayment, At: r.Timestamp})
	}
	return records
}

package zilliqa

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZilDuck/membership-market/internal/billing"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ledger.TokenRail = (*Token)(nil)
	_ billing.Registry = (*Registry)(nil)
)

var (
	tokenAddr    = acct(100)
	registryAddr = acct(2)
	owner        = acct(1)
	alice        = acct(10)
)

func acct(n int) entity.Account {
	return entity.Account(fmt.Sprintf("0x%040x", n))
}

type call struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	Id     int64             `json:"id"`
}

// node is a scripted gateway. Each handler returns the result or an error
// object for one method.
type node struct {
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(params []json.RawMessage) (interface{}, *RPCError)
	status   int
	// lost counts the next responses of a method to replace with a 502 after
	// the handler ran.
	lost map[string]int
}

func newNode(t *testing.T) (*node, Service) {
	t.Helper()
	n := &node{handlers: map[string]func([]json.RawMessage) (interface{}, *RPCError){}, lost: map[string]int{}}
	server := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, 2, false, WithRetries(1, time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	return n, NewZilliqaService(NewProvider(client))
}

func (n *node) serve(w http.ResponseWriter, req *http.Request) {
	var c call
	if err := json.NewDecoder(req.Body).Decode(&c); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, c)
	status := n.status
	handler := n.handlers[c.Method]
	n.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	resp := map[string]interface{}{"id": c.Id, "jsonrpc": "2.0"}
	if handler == nil {
		resp["error"] = RPCError{Code: -32601, Message: "method not found"}
	} else if result, rpcErr := handler(c.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}

	n.mu.Lock()
	lose := n.lost[c.Method] > 0
	if lose {
		n.lost[c.Method]--
	}
	n.mu.Unlock()

	if lose {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *node) on(method string, handler func(params []json.RawMessage) (interface{}, *RPCError)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = handler
}

func (n *node) transitions(t *testing.T) []Transition {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()

	var ts []Transition
	for _, c := range n.calls {
		if c.Method != "CallTransition" {
			continue
		}
		var tr Transition
		require.NoError(t, json.Unmarshal(c.Params[0], &tr))
		ts = append(ts, tr)
	}
	return ts
}

func TestTokenReadsBalancesAndAllowances(t *testing.T) {
	n, service := newNode(t)
	n.on("GetSmartContractSubState", func(params []json.RawMessage) (interface{}, *RPCError) {
		var field string
		_ = json.Unmarshal(params[1], &field)
		switch field {
		case "balances":
			return map[string]interface{}{"balances": map[string]string{alice.String(): "5000"}}, nil
		case "allowances":
			return map[string]interface{}{"allowances": map[string]map[string]string{alice.String(): {registryAddr.String(): "300"}}}, nil
		}
		return nil, nil
	})

	token := NewToken(service, tokenAddr)

	balance, err := token.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, "5000", balance.String())

	allowance, err := token.Allowance(alice, registryAddr)
	require.NoError(t, err)
	assert.Equal(t, "300", allowance.String())

	allowance, err = token.Allowance(alice, owner)
	require.NoError(t, err)
	assert.Equal(t, "0", allowance.String())
}

func TestTokenMissingEntryIsZero(t *testing.T) {
	n, service := newNode(t)
	n.on("GetSmartContractSubState", func(params []json.RawMessage) (interface{}, *RPCError) {
		return nil, nil
	})

	balance, err := NewToken(service, tokenAddr).BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Int64())
}

func TestTokenTransferFromSendsTransition(t *testing.T) {
	n, service := newNode(t)
	n.on("CallTransition", func(params []json.RawMessage) (interface{}, *RPCError) {
		return Receipt{Success: true, TxId: "0xabc"}, nil
	})

	require.NoError(t, NewToken(service, tokenAddr).TransferFrom(registryAddr, alice, registryAddr, big.NewInt(100)))

	ts := n.transitions(t)
	require.Len(t, ts, 1)
	assert.Equal(t, "TransferFrom", ts[0].Transition)
	assert.Equal(t, registryAddr.String(), ts[0].Sender)
	assert.Equal(t, tokenAddr.String(), ts[0].Contract)

	from, err := ts[0].Params.GetString("from")
	require.NoError(t, err)
	assert.Equal(t, alice.String(), from)

	amount, err := ts[0].Params.GetAmount("amount")
	require.NoError(t, err)
	assert.Equal(t, int64(100), amount.Int64())
}

func TestErrorCodesMapToSentinels(t *testing.T) {
	tests := map[RPCErrorCode]error{
		CodeInsufficientFunds:     entity.ErrInsufficientFunds,
		CodeInsufficientAllowance: entity.ErrInsufficientAllowance,
		CodeBlacklisted:           entity.ErrBlacklisted,
		CodeNotOwner:              entity.ErrNotOwner,
		CodeAuthorization:         entity.ErrAuthorization,
	}

	for code, expected := range tests {
		code, expected := code, expected
		t.Run(expected.Error(), func(t *testing.T) {
			n, service := newNode(t)
			n.on("CallTransition", func(params []json.RawMessage) (interface{}, *RPCError) {
				return nil, &RPCError{Code: code, Message: "refused"}
			})

			err := NewToken(service, tokenAddr).Transfer(alice, owner, big.NewInt(1))
			assert.ErrorIs(t, err, expected)
			assert.False(t, entity.IsTransient(err))
		})
	}
}

func TestServerFailuresAreTransient(t *testing.T) {
	n, service := newNode(t)
	n.status = http.StatusBadGateway

	_, err := NewToken(service, tokenAddr).BalanceOf(alice)
	assert.True(t, entity.IsTransient(err))
}

func TestTransitionIsSentOnceWhenResponseIsLost(t *testing.T) {
	n, service := newNode(t)
	var applied int32
	n.on("CallTransition", func(params []json.RawMessage) (interface{}, *RPCError) {
		atomic.AddInt32(&applied, 1)
		return Receipt{Success: true, Events: []EventLog{{EventName: "MembershipCharged"}}}, nil
	})
	n.lost["CallTransition"] = 1

	_, err := NewRegistry(service, registryAddr, owner).ChargeForMembership(alice, 1, time.Now())
	assert.True(t, entity.IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&applied))
	assert.Len(t, n.transitions(t), 1)
}

func TestReadsAreRetriedWhenResponseIsLost(t *testing.T) {
	n, service := newNode(t)
	n.on("GetSmartContractSubState", func(params []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"balances": map[string]string{alice.String(): "5000"}}, nil
	})
	n.lost["GetSmartContractSubState"] = 1

	balance, err := NewToken(service, tokenAddr).BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, "5000", balance.String())
}

func TestNodeBusyIsTransient(t *testing.T) {
	n, service := newNode(t)
	n.on("CallTransition", func(params []json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: CodeNodeBusy, Message: "try again"}
	})

	err := NewToken(service, tokenAddr).Transfer(alice, owner, big.NewInt(1))
	assert.True(t, entity.IsTransient(err))
}

func TestUnreachableNodeIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(url, 1, false, WithRetries(0, time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	_, err = NewRegistry(NewZilliqaService(NewProvider(client)), registryAddr, owner).AddressIsMember(alice)
	assert.True(t, entity.IsTransient(err))
}

func TestRegistryCharge(t *testing.T) {
	n, service := newNode(t)
	n.on("CallTransition", func(params []json.RawMessage) (interface{}, *RPCError) {
		var tr Transition
		_ = json.Unmarshal(params[0], &tr)
		id, _ := tr.Params.GetUint64("token_id")
		if id == 2 {
			return Receipt{Success: true, Events: []EventLog{{EventName: "MembershipBurned"}}}, nil
		}
		return map[string]interface{}{
			"success": true,
			"events": []map[string]interface{}{{
				"_eventname": "MembershipCharged",
				"params": []map[string]interface{}{
					{"vname": "amount", "type": "Uint128", "value": map[string]string{"primitive": "4000"}},
					{"vname": "discount_consumed", "type": "Bool", "value": map[string]interface{}{"constructor": "True"}},
				},
			}},
		}, nil
	})

	registry := NewRegistry(service, registryAddr, owner)
	now := time.Date(2022, 3, 31, 12, 0, 0, 0, time.UTC)

	res, err := registry.ChargeForMembership(alice, 1, now)
	require.NoError(t, err)
	assert.Equal(t, entity.Charged, res.Outcome)
	assert.True(t, res.DiscountConsumed)
	assert.Equal(t, int64(4000), res.Amount.Int64())

	res, err = registry.ChargeForMembership(alice, 2, now)
	require.NoError(t, err)
	assert.Equal(t, entity.BurnedForNonPayment, res.Outcome)

	ts := n.transitions(t)
	require.Len(t, ts, 2)
	assert.Equal(t, owner.String(), ts[0].Sender)
	chargedAt, err := ts[0].Params.GetString("charged_at")
	require.NoError(t, err)
	assert.Equal(t, "2022-03-31T12:00:00Z", chargedAt)
}

func TestRegistryActiveMembershipsAndMembers(t *testing.T) {
	n, service := newNode(t)
	n.on("GetMembershipAssets", func(params []json.RawMessage) (interface{}, *RPCError) {
		return []entity.Asset{
			{Id: 1, Owner: alice, TypeId: entity.MembershipAsset},
			{Id: 2, Owner: registryAddr, TypeId: entity.MembershipAsset, Burned: true},
			{Id: 3, Owner: alice, TypeId: entity.ServiceAsset},
		}, nil
	})
	n.on("GetSmartContractSubState", func(params []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"members": map[string]string{alice.String(): "1"}}, nil
	})

	registry := NewRegistry(service, registryAddr, owner)

	active, err := registry.ActiveMemberships()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(1), active[0].Id)

	member, err := registry.AddressIsMember(alice)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = registry.AddressIsMember(owner)
	require.NoError(t, err)
	assert.False(t, member)
}

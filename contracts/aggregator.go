package contracts

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"tokenfarm/chain"
)

// AggregatorDescription is the description reported by MockV3Aggregator
const AggregatorDescription = "v0.6/tests/MockV3Aggregator.sol"

// AggregatorVersion is the version reported by MockV3Aggregator
const AggregatorVersion = 0

var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// RoundData is the result of latestRoundData / getRoundData
type RoundData struct {
	RoundID         *big.Int `json:"round_id"`
	Answer          *big.Int `json:"answer"`
	StartedAt       *big.Int `json:"started_at"`
	UpdatedAt       *big.Int `json:"updated_at"`
	AnsweredInRound *big.Int `json:"answered_in_round"`
}

// mockV3Aggregator is a Chainlink price feed whose answer is set by anyone
type mockV3Aggregator struct {
	addr  common.Address
	state aggregatorState
}

type aggregatorState struct {
	Decimals        uint8               `json:"decimals"`
	LatestAnswer    *big.Int            `json:"latest_answer"`
	LatestTimestamp uint64              `json:"latest_timestamp"`
	LatestRound     uint64              `json:"latest_round"`
	Answers         map[uint64]*big.Int `json:"answers"`
	Timestamps      map[uint64]uint64   `json:"timestamps"`
	StartedAts      map[uint64]uint64   `json:"started_ats"`
}

func newMockV3Aggregator(env *chain.Env, decimals uint8, initialAnswer *big.Int) (*mockV3Aggregator, error) {
	a := &mockV3Aggregator{addr: env.Self()}
	a.reset()
	a.state.Decimals = decimals
	if err := a.updateAnswer(env, initialAnswer); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *mockV3Aggregator) Address() common.Address { return a.addr }
func (a *mockV3Aggregator) ContractName() string    { return NameMockV3Aggregator }

func (a *mockV3Aggregator) MarshalState() ([]byte, error) { return json.Marshal(&a.state) }

func (a *mockV3Aggregator) UnmarshalState(data []byte) error {
	a.reset()
	return json.Unmarshal(data, &a.state)
}

func (a *mockV3Aggregator) reset() {
	a.state = aggregatorState{
		LatestAnswer: new(big.Int),
		Answers:      make(map[uint64]*big.Int),
		Timestamps:   make(map[uint64]uint64),
		StartedAts:   make(map[uint64]uint64),
	}
}

func (a *mockV3Aggregator) updateAnswer(env *chain.Env, answer *big.Int) error {
	if err := env.Mutate(); err != nil {
		return err
	}
	if err := env.Require(answer.Cmp(minInt256) >= 0 && answer.Cmp(maxInt256) <= 0, ReasonOverflow); err != nil {
		return err
	}
	now := env.Timestamp()
	a.state.LatestAnswer = new(big.Int).Set(answer)
	a.state.LatestTimestamp = now
	a.state.LatestRound++
	round := a.state.LatestRound
	a.state.Answers[round] = new(big.Int).Set(answer)
	a.state.Timestamps[round] = now
	a.state.StartedAts[round] = now
	env.Emit("AnswerUpdated", map[string]any{
		"current":   new(big.Int).Set(answer),
		"roundId":   new(big.Int).SetUint64(round),
		"updatedAt": new(big.Int).SetUint64(now),
	})
	return nil
}

func (a *mockV3Aggregator) updateRoundData(env *chain.Env, roundID uint64, answer *big.Int, timestamp, startedAt uint64) error {
	if err := env.Mutate(); err != nil {
		return err
	}
	if err := env.Require(answer.Cmp(minInt256) >= 0 && answer.Cmp(maxInt256) <= 0, ReasonOverflow); err != nil {
		return err
	}
	a.state.LatestRound = roundID
	a.state.LatestAnswer = new(big.Int).Set(answer)
	a.state.LatestTimestamp = timestamp
	a.state.Answers[roundID] = new(big.Int).Set(answer)
	a.state.Timestamps[roundID] = timestamp
	a.state.StartedAts[roundID] = startedAt
	return nil
}

func (a *mockV3Aggregator) roundData(env *chain.Env, roundID uint64) (*RoundData, error) {
	answer, ok := a.state.Answers[roundID]
	if err := env.Require(ok, ReasonNoRoundData); err != nil {
		return nil, err
	}
	return &RoundData{
		RoundID:         new(big.Int).SetUint64(roundID),
		Answer:          new(big.Int).Set(answer),
		StartedAt:       new(big.Int).SetUint64(a.state.StartedAts[roundID]),
		UpdatedAt:       new(big.Int).SetUint64(a.state.Timestamps[roundID]),
		AnsweredInRound: new(big.Int).SetUint64(roundID),
	}, nil
}

func (a *mockV3Aggregator) latestRoundData(env *chain.Env) (*RoundData, error) {
	return a.roundData(env, a.state.LatestRound)
}

// MockV3Aggregator is a typed binding to a deployed price feed
type MockV3Aggregator struct {
	binding
}

// DeployMockV3Aggregator deploys a price feed answering initialAnswer with decimals precision
func DeployMockV3Aggregator(c *chain.Chain, opts *chain.TransactOpts, decimals uint8, initialAnswer *big.Int) (*MockV3Aggregator, *chain.Receipt, error) {
	if initialAnswer == nil {
		return nil, nil, ErrInvalidAmount
	}
	contract, receipt, err := c.Deploy(opts, NameMockV3Aggregator, func(env *chain.Env) (chain.Contract, error) {
		return newMockV3Aggregator(env, decimals, initialAnswer)
	})
	if err != nil {
		return nil, nil, err
	}
	return &MockV3Aggregator{binding{chain: c, address: contract.Address()}}, receipt, nil
}

// MockV3AggregatorAt binds the price feed at addr
func MockV3AggregatorAt(c *chain.Chain, addr common.Address) (*MockV3Aggregator, error) {
	b, err := bindAt[*mockV3Aggregator](c, addr)
	if err != nil {
		return nil, err
	}
	return &MockV3Aggregator{b}, nil
}

// LatestMockV3Aggregator binds the newest price feed deployment
func LatestMockV3Aggregator(c *chain.Chain) (*MockV3Aggregator, error) {
	addr, err := latestAddress(c, NameMockV3Aggregator)
	if err != nil {
		return nil, err
	}
	return MockV3AggregatorAt(c, addr)
}

// Decimals returns the answer precision
func (a *MockV3Aggregator) Decimals() (uint8, error) {
	var out uint8
	err := viewAs(&a.binding, func(_ *chain.Env, n *mockV3Aggregator) error {
		out = n.state.Decimals
		return nil
	})
	return out, err
}

// LatestAnswer returns the current answer
func (a *MockV3Aggregator) LatestAnswer() (*big.Int, error) {
	var out *big.Int
	err := viewAs(&a.binding, func(_ *chain.Env, n *mockV3Aggregator) error {
		out = new(big.Int).Set(n.state.LatestAnswer)
		return nil
	})
	return out, err
}

// LatestRound returns the current round id
func (a *MockV3Aggregator) LatestRound() (*big.Int, error) {
	var out *big.Int
	err := viewAs(&a.binding, func(_ *chain.Env, n *mockV3Aggregator) error {
		out = new(big.Int).SetUint64(n.state.LatestRound)
		return nil
	})
	return out, err
}

// LatestRoundData returns the current round
func (a *MockV3Aggregator) LatestRoundData() (*RoundData, error) {
	var out *RoundData
	err := viewAs(&a.binding, func(env *chain.Env, n *mockV3Aggregator) error {
		var err error
		out, err = n.latestRoundData(env)
		return err
	})
	return out, err
}

// GetRoundData returns round roundID; unknown rounds revert
func (a *MockV3Aggregator) GetRoundData(roundID uint64) (*RoundData, error) {
	var out *RoundData
	err := viewAs(&a.binding, func(env *chain.Env, n *mockV3Aggregator) error {
		var err error
		out, err = n.roundData(env, roundID)
		return err
	})
	return out, err
}

// Version returns the aggregator interface version
func (a *MockV3Aggregator) Version() *big.Int { return big.NewInt(AggregatorVersion) }

// Description returns the feed description
func (a *MockV3Aggregator) Description() string { return AggregatorDescription }

// UpdateAnswer starts a new round answering answer
func (a *MockV3Aggregator) UpdateAnswer(opts *chain.TransactOpts, answer *big.Int) (*chain.Receipt, error) {
	if answer == nil {
		return nil, ErrInvalidAmount
	}
	return transactAs(&a.binding, opts, "updateAnswer", []any{answer}, func(env *chain.Env, n *mockV3Aggregator) error {
		return n.updateAnswer(env, answer)
	})
}

// UpdateRoundData overwrites round roundID and makes it the latest
func (a *MockV3Aggregator) UpdateRoundData(opts *chain.TransactOpts, roundID uint64, answer *big.Int, timestamp, startedAt uint64) (*chain.Receipt, error) {
	if answer == nil {
		return nil, ErrInvalidAmount
	}
	return transactAs(&a.binding, opts, "updateRoundData", []any{roundID, answer, timestamp, startedAt}, func(env *chain.Env, n *mockV3Aggregator) error {
		return n.updateRoundData(env, roundID, answer, timestamp, startedAt)
	})
}

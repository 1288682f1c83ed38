package contracts

import (
	"github.com/ethereum/go-ethereum/common"

	"tokenfarm/chain"
)

// ownable restricts methods to a single owner account
type ownable struct {
	Owner common.Address `json:"owner"`
}

func (o *ownable) onlyOwner(env *chain.Env) error {
	return env.Require(env.Sender() == o.Owner, ReasonNotOwner)
}

func (o *ownable) transferOwnership(env *chain.Env, newOwner common.Address) error {
	if err := o.onlyOwner(env); err != nil {
		return err
	}
	if err := env.Require(newOwner != (common.Address{}), ReasonZeroOwner); err != nil {
		return err
	}
	previous := o.Owner
	o.Owner = newOwner
	env.Emit("OwnershipTransferred", map[string]any{"previousOwner": previous, "newOwner": newOwner})
	return nil
}

func (o *ownable) renounceOwnership(env *chain.Env) error {
	if err := o.onlyOwner(env); err != nil {
		return err
	}
	previous := o.Owner
	o.Owner = common.Address{}
	env.Emit("OwnershipTransferred", map[string]any{"previousOwner": previous, "newOwner": common.Address{}})
	return nil
}

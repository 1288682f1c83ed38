// Package commands defines the farm CLI and wires dependencies for subcommands.
//
// Commands
//
//   - deploy        Deploy DappToken and TokenFarm, allow the default tokens
//   - issue-tokens  Reward every staker of the latest TokenFarm
//   - stake         Approve and stake a token
//   - unstake       Withdraw a staked token
//   - accounts      List dev accounts and their dapp token balances
//   - serve         Run the read-only HTTP gateway
//   - version       Print build information
//
// # Implementation
//
// The root command loads the config, builds the logger and starts a session
// on the dev chain before any subcommand runs. Chain state is read from the
// --state file first and written back after a successful command, so that
// issue-tokens finds the farm an earlier deploy created.
package commands

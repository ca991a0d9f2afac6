// Package nativenames holds the fixed names every native contract
// registers its manifest under (spec §4.3).
package nativenames

const (
	Management     = "ContractManagement"
	Ledger         = "LedgerContract"
	Neo            = "NeoToken"
	Gas            = "GasToken"
	Policy         = "PolicyContract"
	Designation    = "RoleManagement"
	Oracle         = "OracleContract"
	Notary         = "Notary"
)

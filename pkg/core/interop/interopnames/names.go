// Package interopnames holds the canonical interop method name strings a
// script's SYSCALL opcode resolves against, hashed to numeric ids at
// registration time (spec §4.2 "System interops").
package interopnames

const (
	SystemContractCall           = "System.Contract.Call"
	SystemContractCallNative     = "System.Contract.CallNative"
	SystemContractGetCallFlags   = "System.Contract.GetCallFlags"
	SystemContractCreateStandardAccount = "System.Contract.CreateStandardAccount"
	SystemCryptoCheckSig         = "System.Crypto.CheckSig"
	SystemCryptoCheckMultisig    = "System.Crypto.CheckMultisig"
	SystemCryptoMurmur32         = "System.Crypto.Murmur32"
	SystemIteratorNext           = "System.Iterator.Next"
	SystemIteratorValue          = "System.Iterator.Value"
	SystemRuntimeCheckWitness    = "System.Runtime.CheckWitness"
	SystemRuntimeGasLeft         = "System.Runtime.GasLeft"
	SystemRuntimeGetNetwork      = "System.Runtime.GetNetwork"
	SystemRuntimeGetTrigger      = "System.Runtime.GetTrigger"
	SystemRuntimeGetTime         = "System.Runtime.GetTime"
	SystemRuntimeGetScriptContainer = "System.Runtime.GetScriptContainer"
	SystemRuntimeGetExecutingScriptHash = "System.Runtime.GetExecutingScriptHash"
	SystemRuntimeGetCallingScriptHash   = "System.Runtime.GetCallingScriptHash"
	SystemRuntimeGetEntryScriptHash     = "System.Runtime.GetEntryScriptHash"
	SystemRuntimeLog             = "System.Runtime.Log"
	SystemRuntimeNotify          = "System.Runtime.Notify"
	SystemRuntimePlatform        = "System.Runtime.Platform"
	SystemRuntimeBurnGas         = "System.Runtime.BurnGas"
	SystemStorageGetContext      = "System.Storage.GetContext"
	SystemStorageGetReadOnlyContext = "System.Storage.GetReadOnlyContext"
	SystemStorageGet             = "System.Storage.Get"
	SystemStoragePut             = "System.Storage.Put"
	SystemStorageDelete          = "System.Storage.Delete"
	SystemStorageFind            = "System.Storage.Find"
)

// ToID derives the numeric syscall id from a method name, matching the
// fixed prefix of Hash256(name) used by the reference protocol.
func ToID(name string) uint32 {
	return idFromName(name)
}

package transaction

// ProtocolLimits bounds the shape a built transaction must satisfy. Callers
// building against a live chain should source these from GetProtocolConfig
// rather than relying on the defaults, which track a recent mainnet
// snapshot and may drift.
type ProtocolLimits struct {
	MaxPureArgumentSize int
	MaxTxGas            uint64
	MaxGasObjects       int
	MaxTxSizeBytes      int
}

// DefaultProtocolLimits returns the hardcoded limits Transaction.Build uses
// when BuildOptions.Limits is left zero.
func DefaultProtocolLimits() ProtocolLimits {
	return ProtocolLimits{
		MaxPureArgumentSize: 16 * 1024,
		MaxTxGas:            50_000_000_000,
		MaxGasObjects:       256,
		MaxTxSizeBytes:      131072,
	}
}

// protocolConfigKeys maps each ProtocolLimits field to the attribute name a
// ChainClient's GetProtocolConfig reports it under.
var protocolConfigKeys = struct {
	MaxPureArgumentSize string
	MaxTxGas            string
	MaxGasObjects       string
	MaxTxSizeBytes      string
}{
	MaxPureArgumentSize: "max_pure_function_arguments_length",
	MaxTxGas:            "max_tx_gas",
	MaxGasObjects:       "max_gas_payment_objects",
	MaxTxSizeBytes:      "max_tx_size_bytes",
}

// limitsFromProtocolConfig overlays any attributes a ChainClient reported
// onto the default limits, leaving unreported attributes at their default.
func limitsFromProtocolConfig(attrs map[string]uint64) ProtocolLimits {
	limits := DefaultProtocolLimits()
	if v, ok := attrs[protocolConfigKeys.MaxPureArgumentSize]; ok {
		limits.MaxPureArgumentSize = int(v)
	}
	if v, ok := attrs[protocolConfigKeys.MaxTxGas]; ok {
		limits.MaxTxGas = v
	}
	if v, ok := attrs[protocolConfigKeys.MaxGasObjects]; ok {
		limits.MaxGasObjects = int(v)
	}
	if v, ok := attrs[protocolConfigKeys.MaxTxSizeBytes]; ok {
		limits.MaxTxSizeBytes = int(v)
	}
	return limits
}

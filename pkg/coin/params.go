package coin

// Params describes one supported coin. The table is fixed at build
// time; an unknown coin name in a request is invalid input, never a
// lookup error at runtime.
type Params struct {
	Name     string
	Unit     string
	Decimals int
	// Mainnet is false for test networks; test networks accept the
	// same scripts but are reported separately to the host.
	Mainnet bool
}

var paramsByCoin = map[string]Params{
	"btc":  {Name: "Bitcoin", Unit: "BTC", Decimals: 8, Mainnet: true},
	"tbtc": {Name: "BTC Testnet", Unit: "TBTC", Decimals: 8, Mainnet: false},
	"ltc":  {Name: "Litecoin", Unit: "LTC", Decimals: 8, Mainnet: true},
	"tltc": {Name: "LTC Testnet", Unit: "TLTC", Decimals: 8, Mainnet: false},
}

// ParamsFor returns the parameters for the named coin.
func ParamsFor(coin string) (Params, bool) {
	p, ok := paramsByCoin[coin]
	return p, ok
}

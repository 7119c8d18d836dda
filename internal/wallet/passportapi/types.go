package passportapi

// Chain is one entry of the chain listing.
type Chain struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listChainsResponse struct {
	Result []Chain `json:"result"`
}

type counterfactualAddressRequest struct {
	EthereumAddress   string `json:"ethereum_address"`
	EthereumSignature string `json:"ethereum_signature"`
}

type counterfactualAddressResponse struct {
	CounterfactualAddress string `json:"counterfactual_address"`
}

// SessionActivityQuery carries the counters the backend uses to decide whether activity is due.
type SessionActivityQuery struct {
	ClientID   string
	Wallet     string
	CheckCount int
	SendCount  int
}

// SessionActivity describes the contract call to send and when to check again.
type SessionActivity struct {
	ContractAddress string `json:"contractAddress"`
	FunctionName    string `json:"functionName"`
	// Delay in seconds before the next check, 0 means no further check
	Delay int `json:"delay"`
}

// HasCall reports whether the backend asked for a transaction.
func (a *SessionActivity) HasCall() bool {
	return a != nil && a.ContractAddress != "" && a.FunctionName != ""
}

package near

import (
	"math/big"

	"github.com/near/borsh-go"
)

// Key and signature type tags.
const keyTypeED25519 = 0

// actionTagFunctionCall is FunctionCall's index in the chain's action enum.
const actionTagFunctionCall = 2

// PublicKey is a curve-tagged public key in the transaction schema.
type PublicKey struct {
	KeyType uint8
	Data    [32]byte
}

// Signature is a curve-tagged signature.
type Signature struct {
	KeyType uint8
	Data    [64]byte
}

// FunctionCall invokes a contract method with attached gas and deposit.
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

// Action is the transaction action enum. Only FunctionCall is ever built
// here; the other variants exist so the Borsh enum tags line up with the
// chain's schema.
type Action struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  struct{}
	DeployContract struct{}
	FunctionCall   FunctionCall
	Transfer       struct{}
	Stake          struct{}
	AddKey         struct{}
	DeleteKey      struct{}
	DeleteAccount  struct{}
}

// NewFunctionCallAction builds the FunctionCall action variant.
func NewFunctionCallAction(methodName string, args []byte, gas, deposit uint64) Action {
	return Action{
		Enum: actionTagFunctionCall,
		FunctionCall: FunctionCall{
			MethodName: methodName,
			Args:       args,
			Gas:        gas,
			Deposit:    *new(big.Int).SetUint64(deposit),
		},
	}
}

// Transaction is the signable NEAR transaction payload.
type Transaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// SignedTransaction pairs a transaction with its signature for broadcast.
type SignedTransaction struct {
	Transaction Transaction
	Signature   Signature
}

// Serialize encodes the transaction in Borsh form for signing.
func (t *Transaction) Serialize() ([]byte, error) {
	return borsh.Serialize(*t)
}

// SerializeSigned encodes the broadcastable SignedTransaction.
func (t *Transaction) SerializeSigned(signature [64]byte) ([]byte, error) {
	return borsh.Serialize(SignedTransaction{
		Transaction: *t,
		Signature:   Signature{KeyType: keyTypeED25519, Data: signature},
	})
}

package solana

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is a legacy-format Solana transaction under assembly. All
// instructions execute atomically: if any fails on-chain the whole
// transaction reverts.
type Transaction struct {
	FeePayer        string
	RecentBlockhash string
	Instructions    []Instruction

	signature []byte
}

// NewTransaction creates an unsigned transaction.
func NewTransaction(feePayer, recentBlockhash string, instructions []Instruction) *Transaction {
	return &Transaction{
		FeePayer:        feePayer,
		RecentBlockhash: recentBlockhash,
		Instructions:    instructions,
	}
}

// Sign serializes the message and signs it with the fee payer's keypair.
func (t *Transaction) Sign(kp *Keypair) error {
	if kp.Pubkey() != t.FeePayer {
		return fmt.Errorf("signer %s is not the fee payer %s", kp.Pubkey(), t.FeePayer)
	}
	msg, err := t.serializeMessage()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	t.signature = kp.Sign(msg)
	return nil
}

// Signed reports whether Sign has been called.
func (t *Transaction) Signed() bool { return len(t.signature) == 64 }

// Signature returns the base58 form of the fee payer's signature, which is
// also the transaction's identifier once submitted.
func (t *Transaction) Signature() string {
	if !t.Signed() {
		return ""
	}
	return base58.Encode(t.signature)
}

// Base64 returns the full signed wire encoding for sendTransaction.
func (t *Transaction) Base64() (string, error) {
	if !t.Signed() {
		return "", fmt.Errorf("transaction not signed")
	}
	msg, err := t.serializeMessage()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	writeCompactU16(&buf, 1)
	buf.Write(t.signature)
	buf.Write(msg)
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// accountEntry tracks per-account privileges while building the key table.
type accountEntry struct {
	pubkey   string
	signer   bool
	writable bool
}

// compileAccounts builds the ordered account table: fee payer first, then
// remaining signers, then writable non-signers, then readonly non-signers,
// with program ids last among the readonly set.
func (t *Transaction) compileAccounts() []accountEntry {
	index := map[string]*accountEntry{}
	order := []string{}

	upsert := func(pubkey string, signer, writable bool) {
		e, ok := index[pubkey]
		if !ok {
			e = &accountEntry{pubkey: pubkey}
			index[pubkey] = e
			order = append(order, pubkey)
		}
		e.signer = e.signer || signer
		e.writable = e.writable || writable
	}

	upsert(t.FeePayer, true, true)
	for _, ix := range t.Instructions {
		for _, acc := range ix.Accounts {
			upsert(acc.Pubkey, acc.Signer, acc.Writable)
		}
		upsert(ix.ProgramID, false, false)
	}

	entries := make([]accountEntry, 0, len(order))
	for _, pk := range order {
		entries = append(entries, *index[pk])
	}

	rank := func(e accountEntry) int {
		switch {
		case e.pubkey == t.FeePayer:
			return 0
		case e.signer && e.writable:
			return 1
		case e.signer:
			return 2
		case e.writable:
			return 3
		default:
			return 4
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rank(entries[i]) < rank(entries[j])
	})
	return entries
}

// serializeMessage encodes the legacy message format: header, key table,
// blockhash, then compiled instructions with account indices.
func (t *Transaction) serializeMessage() ([]byte, error) {
	entries := t.compileAccounts()

	keyIndex := map[string]int{}
	var numSigners, numReadonlySigned, numReadonlyUnsigned byte
	for i, e := range entries {
		keyIndex[e.pubkey] = i
		if e.signer {
			numSigners++
			if !e.writable {
				numReadonlySigned++
			}
		} else if !e.writable {
			numReadonlyUnsigned++
		}
	}

	var buf bytes.Buffer
	buf.WriteByte(numSigners)
	buf.WriteByte(numReadonlySigned)
	buf.WriteByte(numReadonlyUnsigned)

	writeCompactU16(&buf, len(entries))
	for _, e := range entries {
		raw, err := base58.Decode(e.pubkey)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("invalid account key %q", e.pubkey)
		}
		buf.Write(raw)
	}

	blockhash, err := base58.Decode(t.RecentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return nil, fmt.Errorf("invalid recent blockhash %q", t.RecentBlockhash)
	}
	buf.Write(blockhash)

	writeCompactU16(&buf, len(t.Instructions))
	for _, ix := range t.Instructions {
		progIdx, ok := keyIndex[ix.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program id %q missing from key table", ix.ProgramID)
		}
		buf.WriteByte(byte(progIdx))
		writeCompactU16(&buf, len(ix.Accounts))
		for _, acc := range ix.Accounts {
			buf.WriteByte(byte(keyIndex[acc.Pubkey]))
		}
		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}

	return buf.Bytes(), nil
}

// writeCompactU16 writes n in the shortvec encoding used throughout the
// transaction wire format.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

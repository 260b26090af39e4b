package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/luxfi/srup/pkg/config"
	"github.com/luxfi/srup/pkg/encoding"
	"github.com/luxfi/srup/pkg/keys"
	"github.com/luxfi/srup/pkg/kvstore"
	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/sequence"
	"github.com/luxfi/srup/pkg/srup"
)

// Flags that map one to one onto variant fields.
var variantFlags = map[string]string{
	"target":    srup.FieldTarget,
	"url":       srup.FieldURL,
	"digest":    srup.FieldDigest,
	"status":    srup.FieldStatus,
	"action-id": srup.FieldActionID,
}

func signCommand() *cli.Command {
	return &cli.Command{
		Name:  "sign",
		Usage: "Build and sign a message, writing its wire form",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "generic, initiate, response, activate or action", Value: "activate"},
			&cli.StringFlag{Name: "key", Usage: "Private key path (default keys.private_key)"},
			&cli.StringFlag{Name: "sender", Usage: "Sender id (default sender_id)"},
			&cli.StringFlag{Name: "sequence", Usage: "Sequence id, or 'auto' to allocate from the store", Value: "auto"},
			&cli.StringFlag{Name: "token", Usage: "Token (default a random UUID)"},
			&cli.StringFlag{Name: "target", Usage: "Initiate: update target id"},
			&cli.StringFlag{Name: "url", Usage: "Initiate: update URL"},
			&cli.StringFlag{Name: "digest", Usage: "Initiate: update digest"},
			&cli.StringFlag{Name: "status", Usage: "Response: status code"},
			&cli.StringFlag{Name: "action-id", Usage: "Action: action id"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default hex on stdout)"},
		},
		Action: runSign,
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a serialized message",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Message file, binary or hex", Required: true},
			&cli.StringFlag{Name: "pub", Usage: "Public key path (default: keys.senders entry for the sender)"},
		},
		Action: runVerify,
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode a serialized message without verifying it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Message file, binary or hex", Required: true},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			msg, err := readMessage(c.String("in"))
			if err != nil {
				return err
			}
			return printJSON(viewOf(msg, nil))
		},
	}
}

func messageTypeByName(name string) (srup.MessageType, error) {
	for _, t := range srup.Types() {
		if t.String() == strings.ToLower(name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown message type %q", name)
}

// setID assigns a numeric field from its textual form. Parsing through
// big.Int lets the message report out of range values itself.
func setID(msg *srup.Message, field, s string) error {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return fmt.Errorf("invalid %s %q", field, s)
	}
	return msg.Set(field, n)
}

func openStore(sc config.StoreConfig) (*kvstore.BadgerKVStore, error) {
	var key []byte
	if sc.EncryptionKey != "" {
		key = []byte(sc.EncryptionKey)
	}
	return kvstore.NewBadgerKVStore(kvstore.Config{Path: sc.Path, EncryptionKey: key, InMemory: sc.InMemory})
}

func loadSigningKey(ctx context.Context, path string) (keys.PrivateKey, error) {
	if path == "" {
		path = cfg.Keys.PrivateKey
	}
	provider, err := keys.NewPassphraseProvider(cfg.Keys.Passphrase)
	if err != nil {
		return nil, err
	}
	return keys.LoadPrivateKey(ctx, path, keys.WithPassphrase(provider))
}

func runSign(ctx context.Context, c *cli.Command) error {
	t, err := messageTypeByName(c.String("type"))
	if err != nil {
		return err
	}
	msg, err := srup.New(t)
	if err != nil {
		return err
	}

	sender := c.String("sender")
	if sender == "" {
		sender = cfg.SenderID
	}
	if sender == "" {
		return fmt.Errorf("no sender id: pass --sender or set sender_id")
	}
	if err := setID(msg, srup.FieldSenderID, sender); err != nil {
		return err
	}

	autoSeq := c.String("sequence") == "auto"
	if !autoSeq {
		if err := setID(msg, srup.FieldSequenceID, c.String("sequence")); err != nil {
			return err
		}
	}

	token := c.String("token")
	if token == "" {
		token = uuid.NewString()
	}
	msg.SetToken(token)

	for flag, field := range variantFlags {
		v := c.String(flag)
		if v == "" {
			continue
		}
		if !msg.Schema().Has(field) {
			return fmt.Errorf("--%s does not apply to %s messages", flag, t)
		}
		if field == srup.FieldURL || field == srup.FieldDigest {
			err = msg.SetBytes(field, []byte(v))
		} else {
			err = setID(msg, field, v)
		}
		if err != nil {
			return err
		}
	}

	var alloc sequenceAllocator
	if autoSeq {
		alloc = allocateSequence
	}
	if err := signMessage(ctx, msg, c.String("key"), alloc); err != nil {
		return err
	}
	data, err := msg.Serialize()
	if err != nil {
		return err
	}
	logger.Debug("Signed message", "message", msg.String())

	if out := c.String("out"); out != "" {
		return os.WriteFile(out, data, 0644)
	}
	fmt.Println(hex.EncodeToString(data))
	return nil
}

type sequenceAllocator func(sender uint64) (uint64, error)

// signMessage loads the signing key and, when alloc is set, draws the
// sequence id only once everything else is in place, so a bad key path or
// passphrase does not burn an id.
func signMessage(ctx context.Context, msg *srup.Message, keyPath string, alloc sequenceAllocator) error {
	key, err := loadSigningKey(ctx, keyPath)
	if err != nil {
		return err
	}
	if alloc != nil {
		for _, f := range msg.Schema().Fields {
			if f.Name != srup.FieldSequenceID && !msg.IsSet(f.Name) {
				return &srup.FieldError{Field: f.Name, Err: srup.ErrFieldUnset}
			}
		}
		sender, _ := msg.SenderID()
		next, err := alloc(sender)
		if err != nil {
			return err
		}
		msg.SetSequenceID(next)
	}
	return msg.Sign(key)
}

func allocateSequence(sender uint64) (uint64, error) {
	store, err := openStore(cfg.Store)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return sequence.NewAllocator(store).Next(sender)
}

func runVerify(ctx context.Context, c *cli.Command) error {
	msg, err := readMessage(c.String("in"))
	if err != nil {
		return err
	}

	var verifier srup.Verifier
	if path := c.String("pub"); path != "" {
		if verifier, err = keys.LoadPublicKey(path); err != nil {
			return err
		}
	} else {
		ring, err := keys.LoadKeyring(cfg.Keys.Senders)
		if err != nil {
			return err
		}
		sender, _ := msg.SenderID()
		if verifier, err = ring.Verifier(sender); err != nil {
			return err
		}
	}

	ok := msg.Verify(verifier)
	if err := printJSON(viewOf(msg, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("signature does not verify")
	}
	return nil
}

// readMessage loads a wire message stored raw or as hex text.
func readMessage(path string) (*srup.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if decoded, err := hex.DecodeString(strings.TrimSpace(string(data))); err == nil {
		data = decoded
	}
	return srup.Decode(data)
}

type messageView struct {
	Type      string         `json:"type"`
	Fields    map[string]any `json:"fields"`
	Signature string         `json:"signature"`
	Verified  *bool          `json:"verified,omitempty"`
}

func viewOf(msg *srup.Message, verified *bool) messageView {
	v := messageView{
		Type:     msg.Type().String(),
		Fields:   make(map[string]any),
		Verified: verified,
	}
	for _, f := range msg.Schema().Fields {
		if f.Kind == srup.KindBytes {
			if b, ok := msg.Bytes(f.Name); ok {
				v.Fields[f.Name] = string(b)
			}
			continue
		}
		if n, ok := msg.Uint(f.Name); ok {
			v.Fields[f.Name] = fmt.Sprintf("%#x", n)
		}
	}
	if sig, ok := msg.Signature(); ok {
		v.Signature = hex.EncodeToString(sig)
	}
	return v
}

func printJSON(v any) error {
	out, err := encoding.StructToIndentedJson(v)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/luxfi/srup/pkg/keys"
	"github.com/luxfi/srup/pkg/logger"
	"github.com/luxfi/srup/pkg/utils"
)

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a signing key pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "algorithm",
				Aliases: []string{"a"},
				Usage:   "rsa, ecdsa-p256, ed25519 or secp256k1",
				Value:   string(keys.Ed25519),
			},
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Private key output path",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "pub",
				Usage: "Public key output path (default <out>.pub)",
			},
			&cli.BoolFlag{
				Name:  "encrypt",
				Usage: "Encrypt the private key with a passphrase (prompted)",
			},
			&cli.BoolFlag{
				Name:  "armor",
				Usage: "Write the encrypted key as ASCII armor",
			},
		},
		Action: runKeygen,
	}
}

func runKeygen(ctx context.Context, c *cli.Command) error {
	alg, err := keys.ParseAlgorithm(c.String("algorithm"))
	if err != nil {
		return err
	}
	key, err := keys.Generate(alg)
	if err != nil {
		return fmt.Errorf("generate %s key: %w", alg, err)
	}

	opts := keys.WriteOptions{Armor: c.Bool("armor")}
	if c.Bool("encrypt") {
		if opts.Passphrase, err = promptNewPassphrase(); err != nil {
			return err
		}
	}

	out := c.String("out")
	pubPath := c.String("pub")
	if pubPath == "" {
		pubPath = out + ".pub"
	}
	if err := keys.WritePrivateKey(out, key, opts); err != nil {
		return err
	}
	if err := keys.WritePublicKey(pubPath, key.Public()); err != nil {
		return err
	}

	logger.Info("Generated key pair",
		"algorithm", alg,
		"private", out,
		"public", pubPath,
		"encrypted", opts.Passphrase != "",
	)
	fmt.Printf("fingerprint: %s\n", key.Public().Fingerprint())
	return nil
}

func promptNewPassphrase() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("--encrypt needs an interactive terminal")
	}
	for {
		fmt.Fprint(os.Stderr, "Enter passphrase: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		if len(pass) == 0 {
			fmt.Fprintln(os.Stderr, "Passphrase cannot be empty. Please try again.")
			continue
		}

		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		confirm, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		if string(pass) != string(confirm) {
			fmt.Fprintln(os.Stderr, "Passphrases do not match. Please try again.")
			continue
		}

		fmt.Fprintf(os.Stderr, "Passphrase set: %s\n", utils.MaskString(string(pass)))
		return string(pass), nil
	}
}

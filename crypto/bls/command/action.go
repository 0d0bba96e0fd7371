package command

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/votela/votela/cli"
	"github.com/votela/votela/crypto"
	"github.com/votela/votela/crypto/bls"
	"golang.org/x/xerrors"
)

// Pubkey prints the public key of the signer in its textual form, which the
// role commands of the node accept.
const Pubkey = "PUBKEY"

// Base64 prints the raw key data, base64 encoded.
const Base64 = "BASE64"

// Base64Pubkey prints the marshaled public key, base64 encoded, which is the
// form the access commands accept.
const Base64Pubkey = "BASE64_PUBKEY"

// actions holds the dependencies of the key commands as fields, so that the
// tests can observe the output and inject failures.
type actions struct {
	printer io.Writer

	gen      func() ([]byte, error)
	pubKeyOf func(data []byte) (crypto.PublicKey, error)

	readFile func(path string) ([]byte, error)
	saveFile func(path string, force bool, data []byte) error
}

// generate creates a fresh key pair and writes it to the save file when one
// is given, otherwise to the output.
func (a actions) generate(flags cli.Flags) error {
	data, err := a.gen()
	if err != nil {
		return xerrors.Errorf("failed to marshal signer: %v", err)
	}

	path := flags.String("save")
	if path == "" {
		fmt.Fprintln(a.printer, string(data))
		return nil
	}

	err = a.saveFile(path, flags.Bool("force"), data)
	if err != nil {
		return xerrors.Errorf("failed to save key: %v", err)
	}

	return nil
}

// show reads a key file and prints it in the requested format.
func (a actions) show(flags cli.Flags) error {
	data, err := a.readFile(flags.Path("path"))
	if err != nil {
		return xerrors.Errorf("failed to read key file: %v", err)
	}

	var out []byte

	switch format := flags.String("format"); format {
	case Pubkey:
		pubkey, err := a.pubKeyOf(data)
		if err != nil {
			return xerrors.Errorf("failed to get public key: %v", err)
		}

		out, err = pubkey.MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal public key: %v", err)
		}

	case Base64Pubkey:
		pubkey, err := a.pubKeyOf(data)
		if err != nil {
			return xerrors.Errorf("failed to get public key: %v", err)
		}

		buf, err := pubkey.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("failed to marshal public key: %v", err)
		}

		out = []byte(base64.StdEncoding.EncodeToString(buf))

	case Base64:
		out = []byte(base64.StdEncoding.EncodeToString(data))

	default:
		return xerrors.Errorf("unknown format '%s'", format)
	}

	fmt.Fprintln(a.printer, string(out))

	return nil
}

// save writes the key to the path. Without force, an existing file is kept
// and reported, so that a typo cannot destroy a deployed identity.
func save(path string, force bool, data []byte) error {
	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(path, mode, 0600)
	if err != nil {
		if os.IsExist(err) {
			return xerrors.Errorf("file '%s' already exists, use --force to overwrite", path)
		}

		return xerrors.Errorf("failed to open file: %v", err)
	}

	defer file.Close()

	_, err = file.Write(data)
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}

// pubKeyOf restores the signer from its marshaled form and returns its
// public key.
func pubKeyOf(data []byte) (crypto.PublicKey, error) {
	signer, err := bls.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer.GetPublicKey(), nil
}

package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bluesky-social/jose/alg"
	"github.com/bluesky-social/jose/eckey"
	"github.com/bluesky-social/jose/keymaterial"
	"github.com/bluesky-social/jose/util/cliutil"

	"github.com/urfave/cli/v2"
)

var algFlag = &cli.StringFlag{
	Name:    "alg",
	Aliases: []string{"a"},
	Usage:   "JWS algorithm (ES256, ES384, ES512); inferred from the key's curve if not set",
	EnvVars: []string{"JOSE_ECKEY_ALG"},
}

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   "output encoding: pem or jwk",
	Value:   "pem",
}

var inputFlag = &cli.StringFlag{
	Name:    "input",
	Aliases: []string{"i"},
	Usage:   "message file to sign or verify (- for stdin)",
	Value:   "-",
}

var cmdGenerate = &cli.Command{
	Name:  "generate",
	Usage: "outputs a new secret key",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "alg",
			Aliases: []string{"a"},
			Usage:   "JWS algorithm the key is for",
			Value:   "ES256",
			EnvVars: []string{"JOSE_ECKEY_ALG"},
		},
		formatFlag,
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write the key to this file (mode 0600) instead of stdout",
		},
	},
	Action: runGenerate,
}

var cmdInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "parses and outputs metadata about a public or secret key",
	ArgsUsage: "<key-file>",
	Flags:     []cli.Flag{algFlag},
	Action:    runInspect,
}

var cmdConvert = &cli.Command{
	Name:      "convert",
	Usage:     "re-encodes a key as PEM or JWK",
	ArgsUsage: "<key-file>",
	Flags: []cli.Flag{
		algFlag,
		formatFlag,
		&cli.BoolFlag{
			Name:  "public",
			Usage: "output only the public key",
		},
	},
	Action: runConvert,
}

var cmdSign = &cli.Command{
	Name:      "sign",
	Usage:     "signs a message, printing the base64url raw signature",
	ArgsUsage: "<key-file>",
	Flags:     []cli.Flag{algFlag, inputFlag},
	Action:    runSign,
}

var cmdVerify = &cli.Command{
	Name:      "verify",
	Usage:     "checks a base64url raw signature over a message",
	ArgsUsage: "<key-file> <signature>",
	Flags:     []cli.Flag{algFlag, inputFlag},
	Action:    runVerify,
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// loadKey reads the key file named by the first argument. Without --alg, the algorithm is the one for the key's curve.
func loadKey(cctx *cli.Context) (*eckey.ECKey, error) {
	fpath := cctx.Args().First()
	if fpath == "" {
		return nil, fmt.Errorf("need to provide key file as an argument")
	}
	algName := cctx.String("alg")
	if algName != "" {
		return cliutil.LoadKeyFromFile(fpath, algName)
	}

	kb, err := readInput(fpath)
	if err != nil {
		return nil, err
	}
	var m *keymaterial.KeyMaterial
	if keymaterial.LooksLikePEM(kb) {
		m, err = keymaterial.ParsePEM(kb)
	} else {
		m, err = keymaterial.ParseJWKJSON(kb)
	}
	if err != nil {
		return nil, err
	}
	a, err := alg.ForCurve(m.Curve())
	if err != nil {
		return nil, err
	}
	return eckey.New(m, a.Name)
}

func runGenerate(cctx *cli.Context) error {
	if out := cctx.String("output"); out != "" {
		key, err := cliutil.GenerateKeyToFile(out, cctx.String("alg"), cctx.String("format"))
		if err != nil {
			return err
		}
		did, err := key.DIDKey()
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s key to %s\n", key.Algorithm(), out)
		fmt.Printf("Public (DID Key): %s\n", did)
		return nil
	}

	key, err := eckey.Generate(cctx.String("alg"))
	if err != nil {
		return err
	}
	buf, err := cliutil.EncodeKey(key, cctx.String("format"))
	if err != nil {
		return err
	}
	fmt.Print(string(buf))
	return nil
}

func runInspect(cctx *cli.Context) error {
	key, err := loadKey(cctx)
	if err != nil {
		return err
	}

	kind := "private"
	if key.IsPublic() {
		kind = "public"
	}
	tp, err := key.Thumbprint()
	if err != nil {
		return err
	}
	did, err := key.DIDKey()
	if err != nil {
		return err
	}

	fmt.Printf("Type: %s / %s %s key\n", key.Curve(), key.Algorithm(), kind)
	fmt.Printf("Backend: %s\n", key.Backend().Name())
	fmt.Printf("Thumbprint: %s\n", tp)
	fmt.Printf("Public (DID Key): %s\n", did)
	return nil
}

func runConvert(cctx *cli.Context) error {
	key, err := loadKey(cctx)
	if err != nil {
		return err
	}
	if cctx.Bool("public") {
		if key, err = key.PublicKey(); err != nil {
			return err
		}
	}
	buf, err := cliutil.EncodeKey(key, cctx.String("format"))
	if err != nil {
		return err
	}
	fmt.Print(string(buf))
	return nil
}

func runSign(cctx *cli.Context) error {
	key, err := loadKey(cctx)
	if err != nil {
		return err
	}
	msg, err := readInput(cctx.String("input"))
	if err != nil {
		return err
	}
	sig, err := key.Sign(msg)
	if err != nil {
		return err
	}
	fmt.Println(base64.RawURLEncoding.EncodeToString(sig))
	return nil
}

func runVerify(cctx *cli.Context) error {
	key, err := loadKey(cctx)
	if err != nil {
		return err
	}
	sigStr := cctx.Args().Get(1)
	if sigStr == "" {
		return fmt.Errorf("need to provide signature as second argument")
	}
	sig, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(sigStr, "="))
	if err != nil {
		return fmt.Errorf("signature is not base64url: %w", err)
	}
	msg, err := readInput(cctx.String("input"))
	if err != nil {
		return err
	}
	if !key.Verify(msg, sig) {
		return fmt.Errorf("signature is not valid")
	}
	fmt.Println("valid")
	return nil
}

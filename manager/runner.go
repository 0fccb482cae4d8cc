// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/updater-keygen/updater-keygen/config"
	"github.com/updater-keygen/updater-keygen/keygen"
	"github.com/updater-keygen/updater-keygen/renderer"
)

// Runner generates one key pair and renders it to disk.
type Runner struct {
	// outStream is where the status lines and the public key are printed.
	outStream io.Writer

	// config is the finalized configuration for this run.
	config *config.Config

	// dry signals that no files should be written; the rendered contents are
	// printed to outStream instead.
	dry bool

	// random is the entropy source. Always crypto/rand outside of tests.
	random io.Reader
}

// Result describes a successful run.
type Result struct {
	PrivateKeyPath string
	PublicKeyPath  string

	// PublicKeyPEM is exactly what was (or would be) written to PublicKeyPath.
	PublicKeyPEM []byte

	Fingerprint string

	// DidRender is false for dry runs.
	DidRender bool
}

// NewRunner accepts a finalized config and a dry flag and returns a Runner.
func NewRunner(config *config.Config, dry bool) (*Runner, error) {
	log.Printf("[INFO] (runner) creating new runner (dry: %v)", dry)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		outStream: os.Stdout,
		config:    config,
		dry:       dry,
		random:    rand.Reader,
	}, nil
}

// SetOutStream modifies runner output stream. Defaults to stdout.
func (r *Runner) SetOutStream(out io.Writer) {
	r.outStream = out
}

// Run generates the key pair, verifies that both encodings pair up, writes
// them as one group and prints the status report. Nothing is written when an
// error is returned.
func (r *Runner) Run() (*Result, error) {
	log.Printf("[DEBUG] (runner) checking crypto backend")
	if err := keygen.CheckBackend(r.random); err != nil {
		return nil, err
	}

	fmt.Fprintln(r.outStream, "Generating RSA key pair for the updater...")

	log.Printf("[DEBUG] (runner) generating %d-bit RSA key", keygen.KeyBits)
	kp, err := keygen.Generate(r.random)
	if err != nil {
		return nil, err
	}

	privatePEM, err := kp.PrivatePEM()
	if err != nil {
		return nil, err
	}
	publicPEM, err := kp.PublicPEM()
	if err != nil {
		return nil, err
	}

	if err := keygen.VerifyPair(privatePEM, publicPEM); err != nil {
		return nil, fmt.Errorf("runner: generated key pair failed verification: %w", err)
	}

	fingerprint, err := kp.Fingerprint()
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] (runner) generated key %s", fingerprint)

	privatePath := r.config.PrivateKeyPath()
	publicPath := r.config.PublicKeyPath()

	rr, err := renderer.Render(&renderer.RenderInput{
		Backup:         config.BoolVal(r.config.Backup),
		CreateDestDirs: config.BoolVal(r.config.CreateDestDirs),
		Dry:            r.dry,
		DryStream:      r.outStream,
		Files: []*renderer.File{
			{
				Path:     privatePath,
				Contents: privatePEM,
				Perms:    config.FileModeVal(r.config.PrivateKeyPerms),
			},
			{
				Path:     publicPath,
				Contents: publicPEM,
				Perms:    config.FileModeVal(r.config.PublicKeyPerms),
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if rr.DidRender {
		log.Printf("[INFO] (runner) wrote %q and %q", privatePath, publicPath)
	}

	result := &Result{
		PrivateKeyPath: privatePath,
		PublicKeyPath:  publicPath,
		PublicKeyPEM:   publicPEM,
		Fingerprint:    fingerprint,
		DidRender:      rr.DidRender,
	}
	r.report(result)
	return result, nil
}

// report prints the human readable summary followed by the public key text.
func (r *Runner) report(res *Result) {
	out := r.outStream
	if r.dry {
		fmt.Fprintln(out, "Dry run: no files were written.")
	} else {
		fmt.Fprintln(out, "✓ Keys generated successfully!")
	}
	fmt.Fprintf(out, "Private key: %s\n", res.PrivateKeyPath)
	fmt.Fprintf(out, "Public key: %s\n", res.PublicKeyPath)
	fmt.Fprintf(out, "Fingerprint: %s\n", res.Fingerprint)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "IMPORTANT:")
	fmt.Fprintln(out, "- Keep the private key secure and never commit it to your repository")
	fmt.Fprintln(out, "- Copy the public key content to your tauri.conf.json")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Public key content:")
	out.Write(res.PublicKeyPEM)
}

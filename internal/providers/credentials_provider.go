package providers

import (
	"bufio"
	"cgmd/internal/models"
	"cgmd/internal/structures"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvEmail    = "CGMD_EMAIL"
	EnvPassword = "CGMD_PASSWORD"
)

var ErrNoCredentials = errors.New("no upstream credentials available")

// CredentialsProviderInterface supplies the upstream login. Implementations
// may block on a human; callers only ask when no usable session exists.
type CredentialsProviderInterface interface {
	Credentials(ctx context.Context) (models.Credentials, error)
}

// EnvCredentials reads credentials from the process environment, falling back
// to a dotenv file for keys the environment does not set.
type EnvCredentials struct {
	EnvFile string
	Getenv  func(string) string
}

func (e *EnvCredentials) Credentials(_ context.Context) (models.Credentials, error) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	var fileEnv map[string]string
	if e.EnvFile != "" {
		var err error
		fileEnv, err = godotenv.Read(e.EnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return models.Credentials{}, fmt.Errorf("reading %s: %w", e.EnvFile, err)
		}
	}
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}

	creds := models.Credentials{Email: lookup(EnvEmail), Password: lookup(EnvPassword)}
	if creds.Empty() {
		return models.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

// PromptCredentials asks for credentials on a console.
type PromptCredentials struct {
	In  io.Reader
	Out io.Writer
}

func (p *PromptCredentials) Credentials(_ context.Context) (models.Credentials, error) {
	reader := bufio.NewReader(p.In)

	email, err := p.ask(reader, "Email: ")
	if err != nil {
		return models.Credentials{}, err
	}
	password, err := p.ask(reader, "Password: ")
	if err != nil {
		return models.Credentials{}, err
	}

	creds := models.Credentials{Email: email, Password: password}
	if creds.Empty() {
		return models.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

func (p *PromptCredentials) ask(reader *bufio.Reader, label string) (string, error) {
	if _, err := fmt.Fprint(p.Out, label); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// ChainCredentials returns the first provider's credentials that succeed.
type ChainCredentials []CredentialsProviderInterface

func (c ChainCredentials) Credentials(ctx context.Context) (models.Credentials, error) {
	var errs []error
	for _, p := range c {
		creds, err := p.Credentials(ctx)
		if err == nil {
			return creds, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return models.Credentials{}, ErrNoCredentials
	}
	return models.Credentials{}, errors.Join(errs...)
}

func NewCredentialsProvider(conf *structures.Config, logger Logger) CredentialsProviderInterface {
	chain := ChainCredentials{&EnvCredentials{EnvFile: conf.Credentials.EnvFile}}
	if conf.Credentials.Prompt {
		chain = append(chain, &PromptCredentials{In: os.Stdin, Out: os.Stderr})
	}
	logger.Debugf(TypeApp, "Credentials providers configured: %d", len(chain))
	return chain
}

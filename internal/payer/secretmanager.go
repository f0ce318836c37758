package payer

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"sss-shared/internal/solana"
)

// accessSecret fetches a secret version payload. Replaced in tests.
var accessSecret = accessSecretVersion

// FromSecretManager loads the payer from a GCP Secret Manager secret whose
// payload is keypair JSON or a mnemonic phrase. name is a full resource
// name; without a version suffix the latest version is read.
func FromSecretManager(ctx context.Context, name string) (solana.Keypair, error) {
	name = secretVersionName(name)
	data, err := accessSecret(ctx, name)
	if err != nil {
		return solana.Keypair{}, err
	}
	kp, err := parseSecret(data)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("secret %s: %w", name, err)
	}
	return kp, nil
}

func secretVersionName(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), "/")
	if strings.Contains(name, "/versions/") {
		return name
	}
	return name + "/versions/latest"
}

func accessSecretVersion(ctx context.Context, name string) ([]byte, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	res, err := client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("access secret version %s: %w", name, err)
	}
	return res.GetPayload().GetData(), nil
}

package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// LoadSigningKey decodes the base64 audit signing key. When keyURI is set the decoded
// bytes are a ciphertext and are decrypted by the KMS keeper it names
// (gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://).
// An empty encodedKey returns nil, nil: audit entries are then stored unsigned.
func LoadSigningKey(ctx context.Context, encodedKey, keyURI string) ([]byte, error) {
	if encodedKey == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audit signing key: %w", err)
	}

	if keyURI == "" {
		return raw, nil
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	plaintext, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap audit signing key: %w", err)
	}
	return plaintext, nil
}

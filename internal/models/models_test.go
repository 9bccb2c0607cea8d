package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserModel_Credentials(t *testing.T) {
	u := &UserModel{Password: strPtr("$2a$10$hash")}
	assert.Equal(t, []CredentialKind{CredentialPassword}, u.Credentials())

	u.SetProviderID(CredentialGoogle, "g-123")
	assert.Equal(t, []CredentialKind{CredentialPassword, CredentialGoogle}, u.Credentials())
	assert.Equal(t, "g-123", *u.ProviderID(CredentialGoogle))
	assert.Nil(t, u.ProviderID(CredentialMicrosoft))

	federated := &UserModel{MicrosoftID: strPtr("oid-1")}
	assert.False(t, federated.HasCredential(CredentialPassword))
	assert.True(t, federated.HasCredential(CredentialMicrosoft))
}

func TestToPublicProfile_NeverLeaksSecrets(t *testing.T) {
	u := &UserModel{
		ID:       7,
		Name:     "Alice",
		LastName: "Doe",
		Email:    "alice@example.com",
		Password: strPtr("$2a$10$secret"),
		GoogleID: strPtr("g-1"),
		Role:     RoleUser,
	}

	raw, err := json.Marshal(ToAdminUserView(u))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "google_id")
	assert.Equal(t, "alice@example.com", got["email"])
	assert.Equal(t, "user", got["role"])
	assert.Contains(t, got, "created_at")
}

func TestExternalIdentity_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         ExternalIdentity
		wantGiven  string
		wantFamily string
	}{
		{
			name:      "given and family kept",
			in:        ExternalIdentity{GivenName: " Amina ", FamilyName: "Okafor", DisplayName: "Dr Amina Okafor"},
			wantGiven: "Amina", wantFamily: "Okafor",
		},
		{
			name:      "split display name",
			in:        ExternalIdentity{DisplayName: "Kwame Mensah Boateng"},
			wantGiven: "Kwame", wantFamily: "Mensah Boateng",
		},
		{
			name:      "email local part",
			in:        ExternalIdentity{Email: "jdoe@contoso.com"},
			wantGiven: "jdoe", wantFamily: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantGiven, got.GivenName)
			assert.Equal(t, tt.wantFamily, got.FamilyName)
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("superuser").Valid())
}

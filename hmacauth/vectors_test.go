package hmacauth

import (
	"context"
	"time"
)

const (
	pipetRealm     = "Pipet service"
	pipetID        = "efdde334-fe7b-11e4-a322-1697f925ec7b"
	pipetNonce     = "d1954337-5319-4821-8427-115542e08d10"
	pipetTimestamp = "1432075982"
	pipetSecret    = "W5PeGMxSItNerkNFqQMfYiJvH14WzVJMy54CPoTAYoI="
	pipetURL       = "http://example.acquiapipet.net/v1.0/task-status/133?limit=10"
	pipetSignature = "MRlPr/Z1WQY2sMthcaEqETRMw4gPYXlPcTpaLWS2gcc="

	plexusRealm     = "Plexus"
	plexusID        = "f0d16792-cdc9-4585-a5fd-bae3d898d8c5"
	plexusNonce     = "64d02132-40bf-4fce-85bf-3f1bb1bfe7dd"
	plexusTimestamp = "1449578521"
	plexusSecret    = "eox4TsBBPhpi737yMxpdBbr3sgg/DEC4m47VXO0B8qJLsbdMsmN47j/ZF/EFpyUKtAhm0OWXMGaAjRaho7/93Q=="
	plexusURL       = "http://54.154.147.142:3000/register"
	plexusBody      = `{"method":"hi.bob","params":["5","4","8"]}`
	plexusDigest    = "6paRNxUA7WawFxJpRp4cEixDjHq3jfIKX072k9slalo="
	plexusSignature = "4VtBHjqrdDeYrJySoJVDUHpN9u3vyTsyOLz4chezi98="

	plexusResponseSignature = "IxZYV49tP0GjbCZO0KDtk1eJSCMbObjfP+lYFc8NSxs="
)

func unixClock(ts int64) func() time.Time {
	return func() time.Time {
		return time.Unix(ts, 0)
	}
}

func fixedNonce(nonce string) func() string {
	return func() string {
		return nonce
	}
}

func staticResolver(secrets map[string]string) SecretResolver {
	return SecretResolverFunc(func(_ context.Context, id string) (string, error) {
		secret, ok := secrets[id]
		if !ok {
			return "", ErrUnknownAccessKey
		}

		return secret, nil
	})
}

func pipetHeader() AuthorizationHeader {
	return AuthorizationHeader{
		Realm:   pipetRealm,
		ID:      pipetID,
		Nonce:   pipetNonce,
		Version: "2.0",
	}
}

func plexusHeader() AuthorizationHeader {
	return AuthorizationHeader{
		Realm:   plexusRealm,
		ID:      plexusID,
		Nonce:   plexusNonce,
		Version: "2.0",
	}
}

package handler

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
)

// ReplaceDocumentRequestSuite tests ReplaceDocumentRequest validation.
type ReplaceDocumentRequestSuite struct {
	suite.Suite
}

func TestReplaceDocumentRequestSuite(t *testing.T) {
	suite.Run(t, new(ReplaceDocumentRequestSuite))
}

func (s *ReplaceDocumentRequestSuite) TestValidation() {
	s.Run("valid request passes", func() {
		doc := models.NewDocument("did:sapphire:abc123")
		req := &ReplaceDocumentRequest{Document: &doc}

		s.NoError(req.Validate())
	})

	s.Run("document without id passes", func() {
		// The service writes the stored DID over whatever id the caller
		// sent, so an absent id is not a transport-level failure.
		req := &ReplaceDocumentRequest{Document: &models.Document{
			Context: []string{models.W3CDIDContext},
		}}

		s.NoError(req.Validate())
	})

	s.Run("missing document rejected", func() {
		req := &ReplaceDocumentRequest{}

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "document is required")
	})

	s.Run("nil request rejected", func() {
		var req *ReplaceDocumentRequest

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "request is required")
	})
}

// AddVerificationMethodRequestSuite tests AddVerificationMethodRequest validation.
type AddVerificationMethodRequestSuite struct {
	suite.Suite
}

func TestAddVerificationMethodRequestSuite(t *testing.T) {
	suite.Run(t, new(AddVerificationMethodRequestSuite))
}

func (s *AddVerificationMethodRequestSuite) TestValidation() {
	s.Run("valid request passes", func() {
		req := &AddVerificationMethodRequest{Method: &models.VerificationMethod{
			ID:                 "#key-2",
			Type:               "Ed25519VerificationKey2020",
			Controller:         "did:sapphire:abc123",
			PublicKeyMultibase: "zExampleKey",
		}}

		s.NoError(req.Validate())
	})

	s.Run("missing method rejected", func() {
		req := &AddVerificationMethodRequest{}

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "verification method is required")
	})

	s.Run("incomplete method rejected", func() {
		req := &AddVerificationMethodRequest{Method: &models.VerificationMethod{
			ID: "#key-2",
		}}

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "publicKeyMultibase")
	})

	s.Run("nil request rejected", func() {
		var req *AddVerificationMethodRequest

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "request is required")
	})
}

// AddServiceRequestSuite tests AddServiceRequest validation.
type AddServiceRequestSuite struct {
	suite.Suite
}

func TestAddServiceRequestSuite(t *testing.T) {
	suite.Run(t, new(AddServiceRequestSuite))
}

func (s *AddServiceRequestSuite) TestValidation() {
	s.Run("valid request passes", func() {
		req := &AddServiceRequest{Service: &models.Service{
			ID:              "#hub",
			Type:            "MessagingHub",
			ServiceEndpoint: "https://hub.example.com",
		}}

		s.NoError(req.Validate())
	})

	s.Run("missing service rejected", func() {
		req := &AddServiceRequest{}

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "service is required")
	})

	s.Run("incomplete service rejected", func() {
		req := &AddServiceRequest{Service: &models.Service{
			ID: "#hub",
		}}

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "serviceEndpoint")
	})

	s.Run("nil request rejected", func() {
		var req *AddServiceRequest

		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "request is required")
	})
}

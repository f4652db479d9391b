package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls TranslationService over Connect.
type Client struct {
	translate      *connect.Client[TranslateRequest, TranslationResult]
	translateAudio *connect.Client[TranslateAudioRequest, TranslationResult]
	listLanguages  *connect.Client[ListLanguagesRequest, ListLanguagesResponse]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		translate:      connect.NewClient[TranslateRequest, TranslationResult](httpClient, baseURL+TranslateProcedure, opts...),
		translateAudio: connect.NewClient[TranslateAudioRequest, TranslationResult](httpClient, baseURL+TranslateAudioProcedure, opts...),
		listLanguages:  connect.NewClient[ListLanguagesRequest, ListLanguagesResponse](httpClient, baseURL+ListLanguagesProcedure, opts...),
	}
}

// NewHTTPClient returns a client with the default transport.
func NewHTTPClient(baseURL string, opts ...connect.ClientOption) *Client {
	return NewClient(http.DefaultClient, baseURL, opts...)
}

func (c *Client) Translate(ctx context.Context, req *TranslateRequest) (*TranslationResult, error) {
	resp, err := c.translate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) TranslateAudio(ctx context.Context, req *TranslateAudioRequest) (*TranslationResult, error) {
	resp, err := c.translateAudio.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) ListLanguages(ctx context.Context) ([]Language, error) {
	resp, err := c.listLanguages.CallUnary(ctx, connect.NewRequest(&ListLanguagesRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Languages, nil
}

// ErrorMessage returns the user-facing message carried by a Connect error.
func ErrorMessage(err error) string {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) && connectErr.Message() != "" {
		return connectErr.Message()
	}
	return err.Error()
}

// Package telegram implements [relay.ChatClient] for Telegram bots using
// telebot v4, and the inbound side of the relay which turns chat messages and
// inline keyboard presses into terminal input.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	tele "gopkg.in/telebot.v4"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// API is the subset of the telebot API used to deliver messages. It is
// satisfied by *tele.Bot.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	SendAlbum(to tele.Recipient, a tele.Album, opts ...interface{}) ([]tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Notify(to tele.Recipient, action tele.ChatAction, threadID ...int) error
}

// Client implements [relay.ChatClient] for the Telegram Bot API
type Client struct {
	api API
}

var _ relay.ChatClient = (*Client)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewClient returns a chat client which delivers messages through api
func NewClient(api API) (*Client, error) {
	if api == nil {
		return nil, relay.ErrBadParameter.With("api is nil")
	}
	return &Client{api: api}, nil
}

///////////////////////////////////////////////////////////////////////////////
// ChatClient IMPLEMENTATION

// Send a new message to the target chat and thread
func (c *Client) Send(_ context.Context, target relay.Target, content relay.Content) (relay.MessageID, error) {
	msg, err := c.api.Send(tele.ChatID(target.ChatID), content.Text, sendOptions(target, content))
	if err != nil {
		return 0, classify(err)
	}
	return relay.MessageID(msg.ID), nil
}

// Edit the text of a message. A "message is not modified" response is
// reported as relay.EditCurrent.
func (c *Client) Edit(_ context.Context, target relay.Target, id relay.MessageID, content relay.Content) (relay.EditResult, error) {
	opts := sendOptions(target, content)
	opts.ThreadID = 0
	if _, err := c.api.Edit(stored(target, id), content.Text, opts); err != nil {
		err = classify(err)
		if errors.Is(err, relay.ErrNotModified) {
			return relay.EditCurrent, nil
		}
		return relay.EditFailed, err
	}
	return relay.EditApplied, nil
}

// Delete a message
func (c *Client) Delete(_ context.Context, target relay.Target, id relay.MessageID) error {
	if err := c.api.Delete(stored(target, id)); err != nil {
		return classify(err)
	}
	return nil
}

// SendPhotos sends a single image as a photo, and several images as an album
func (c *Client) SendPhotos(_ context.Context, target relay.Target, images []relay.Image) error {
	opts := &tele.SendOptions{ThreadID: int(target.ThreadID)}
	switch len(images) {
	case 0:
		return nil
	case 1:
		if _, err := c.api.Send(tele.ChatID(target.ChatID), photo(images[0]), opts); err != nil {
			return classify(err)
		}
	default:
		album := make(tele.Album, 0, len(images))
		for _, image := range images {
			album = append(album, photo(image))
		}
		if _, err := c.api.SendAlbum(tele.ChatID(target.ChatID), album, opts); err != nil {
			return classify(err)
		}
	}
	return nil
}

// SendTyping shows the "typing" chat action in the target chat and thread
func (c *Client) SendTyping(_ context.Context, target relay.Target) error {
	var err error
	if target.ThreadID != 0 {
		err = c.api.Notify(tele.ChatID(target.ChatID), tele.Typing, int(target.ThreadID))
	} else {
		err = c.api.Notify(tele.ChatID(target.ChatID), tele.Typing)
	}
	if err != nil {
		return classify(err)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func stored(target relay.Target, id relay.MessageID) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.FormatInt(int64(id), 10),
		ChatID:    target.ChatID,
	}
}

func photo(image relay.Image) *tele.Photo {
	return &tele.Photo{File: tele.FromReader(bytes.NewReader(image.Data))}
}

// sendOptions converts content entities and keyboard into telebot options.
// Link previews are disabled.
func sendOptions(target relay.Target, content relay.Content) *tele.SendOptions {
	opts := &tele.SendOptions{
		ThreadID:              int(target.ThreadID),
		DisableWebPagePreview: true,
		Entities:              entities(content.Entities),
	}
	if len(content.Keyboard) > 0 {
		opts.ReplyMarkup = replyMarkup(content.Keyboard)
	}
	return opts
}

func entities(src []relay.Entity) tele.Entities {
	if len(src) == 0 {
		return nil
	}
	result := make(tele.Entities, 0, len(src))
	for _, e := range src {
		result = append(result, tele.MessageEntity{
			Type:     tele.EntityType(e.Type),
			Offset:   e.Offset,
			Length:   e.Length,
			URL:      e.URL,
			Language: e.Language,
		})
	}
	return result
}

func replyMarkup(keyboard relay.Keyboard) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tele.InlineButton{Text: button.Text, Data: button.Data})
		}
		rows = append(rows, buttons)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Room operation failures. All of these are recoverable: they are reported
// back to the offending connection and never tear down the room or process.
var (
	errRoomNotFound         = errors.New("room not found")
	errRoomNotJoinable      = errors.New("room is not accepting players")
	errInvalidState         = errors.New("operation not valid in current room state")
	errNotHost              = errors.New("only the host may do that")
	errUnknownPlayer        = errors.New("player is not in this room")
	errUnknownQuestion      = errors.New("question not found")
	errInsufficientFunds    = errors.New("not enough money")
	errNoQuestionsAvailable = errors.New("no questions available")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

// Package srs implements the spaced repetition scheduling used when study
// sessions grade a card. It is a pure calculation package: it turns a card's
// current Schedule and a Grade into the next Schedule.
package srs

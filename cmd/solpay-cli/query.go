package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

func runAccount(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("account", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		return printError(stderr, errors.New("usage: account <key>"))
	}
	key, err := parseKeyFlag("key", fs.Arg(0))
	if err != nil {
		return printError(stderr, err)
	}
	result, err := callAPI(http.MethodGet, "/v1/accounts/"+key.String(), nil)
	if err != nil {
		return printError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runProject(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("project", stderr)
	var owner, campaign string
	fs.StringVar(&owner, "owner", "", "project owner key")
	fs.StringVar(&campaign, "campaign", "", "campaign id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	ownerKey, err := parseKeyFlag("owner", owner)
	if err != nil {
		return printError(stderr, err)
	}
	campaignKey, err := parseKeyFlag("campaign", campaign)
	if err != nil {
		return printError(stderr, err)
	}
	result, err := callAPI(http.MethodGet, fmt.Sprintf("/v1/projects/%s/%s", ownerKey, campaignKey), nil)
	if err != nil {
		return printError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runAffiliate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("affiliate", stderr)
	var affiliate, owner, campaign string
	fs.StringVar(&affiliate, "affiliate", "", "affiliate key")
	fs.StringVar(&owner, "owner", "", "project owner key")
	fs.StringVar(&campaign, "campaign", "", "campaign id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	affiliateKey, err := parseKeyFlag("affiliate", affiliate)
	if err != nil {
		return printError(stderr, err)
	}
	ownerKey, err := parseKeyFlag("owner", owner)
	if err != nil {
		return printError(stderr, err)
	}
	campaignKey, err := parseKeyFlag("campaign", campaign)
	if err != nil {
		return printError(stderr, err)
	}
	path := fmt.Sprintf("/v1/affiliates/%s/%s/%s", affiliateKey, ownerKey, campaignKey)
	result, err := callAPI(http.MethodGet, path, nil)
	if err != nil {
		return printError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runEvents(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("events", stderr)
	var eventType, project, tx string
	var after uint64
	var limit int
	fs.StringVar(&eventType, "type", "", "event type filter")
	fs.StringVar(&project, "project", "", "project address filter")
	fs.StringVar(&tx, "tx", "", "transaction hash filter")
	fs.Uint64Var(&after, "after", 0, "only return events after this id")
	fs.IntVar(&limit, "limit", 0, "maximum number of events")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	q := url.Values{}
	if eventType != "" {
		q.Set("type", eventType)
	}
	if project != "" {
		q.Set("project", project)
	}
	if tx != "" {
		q.Set("tx", tx)
	}
	if after > 0 {
		q.Set("after", strconv.FormatUint(after, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/events"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	result, err := callAPI(http.MethodGet, path, nil)
	if err != nil {
		return printError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/protomem/credit-bank/internal/client"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/shopspring/decimal"
)

type command struct {
	path    []string
	summary string
	run     func(ctx context.Context, s *client.Session, args []string) (any, error)
}

func (c command) name() string {
	return strings.Join(c.path, " ")
}

var _commands = []command{
	{path: []string{"register"}, summary: "register a user from a JSON document (-f file, default stdin)", run: runRegister},
	{path: []string{"login"}, summary: "sign in and store the token", run: runLogin},
	{path: []string{"logout"}, summary: "sign out and forget the token", run: runLogout},
	{path: []string{"me"}, summary: "show the signed-in user", run: runMe},
	{path: []string{"check"}, summary: "report whether the token is valid and privileged", run: runCheck},
	{path: []string{"orders", "create"}, summary: "submit a credit order", run: runCreateOrder},
	{path: []string{"orders", "list"}, summary: "list orders", run: runListOrders},
	{path: []string{"orders", "get"}, summary: "show one order", run: runGetOrder},
	{path: []string{"orders", "patch"}, summary: "change order status or active flag", run: runPatchOrder},
	{path: []string{"orders", "accept"}, summary: "accept the offer on an order and open a credit", run: runAcceptOrder},
	{path: []string{"responses", "create"}, summary: "answer an order with an offer", run: runCreateResponse},
	{path: []string{"responses", "list"}, summary: "list responses", run: runListResponses},
	{path: []string{"credits", "list"}, summary: "list credits", run: runListCredits},
	{path: []string{"credits", "get"}, summary: "show one credit", run: runGetCredit},
}

func lookupCommand(args []string) (command, bool) {
	for _, cmd := range _commands {
		if len(args) < len(cmd.path) {
			continue
		}
		matched := true
		for i, part := range cmd.path {
			if args[i] != part {
				matched = false
				break
			}
		}
		if matched {
			return cmd, true
		}
	}
	return command{}, false
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runRegister(ctx context.Context, s *client.Session, args []string) (any, error) {
	fs := newFlagSet("register")
	file := fs.String("f", "-", "JSON file with the registration payload")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var in model.RegisterUserInput
	if err := readJSON(*file, &in); err != nil {
		return nil, err
	}

	return s.Register(ctx, in)
}

func runLogin(ctx context.Context, s *client.Session, args []string) (any, error) {
	fs := newFlagSet("login")
	username := fs.String("u", "", "email")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := s.Login(ctx, model.Credentials{Username: *username, Password: *password}); err != nil {
		return nil, err
	}

	return map[string]string{"status": "signed in"}, nil
}

func runLogout(ctx context.Context, s *client.Session, _ []string) (any, error) {
	return nil, s.Logout(ctx)
}

func runMe(ctx context.Context, s *client.Session, _ []string) (any, error) {
	return s.Me(ctx)
}

func runCheck(ctx context.Context, s *client.Session, _ []string) (any, error) {
	authorized, err := s.IsAuthorized(ctx)
	if err != nil {
		return nil, err
	}

	spec := false
	if authorized {
		if spec, err = s.IsSpec(ctx); err != nil {
			return nil, err
		}
	}

	return map[string]bool{"authorized": authorized, "is_spec": spec}, nil
}

func runCreateOrder(ctx context.Context, s *client.Session, args []string) (any, error) {
	fs := newFlagSet("orders create")
	userID := fs.Uint("user", 0, "user id (specialists only, default self)")
	amount := fs.String("amount", "", "requested amount")
	period := fs.Int("period", 0, "term in months")
	target := fs.String("target", "", "purpose")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	creditSize, err := decimal.NewFromString(*amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", *amount)
	}

	return s.CreateOrder(ctx, model.OrderInput{
		UserID:     *userID,
		CreditSize: creditSize,
		Period:     *period,
		Target:     *target,
	})
}

func listFlags(name string, args []string, withNew bool) (client.ListOptions, error) {
	fs := newFlagSet(name)
	userID := fs.Uint("user", 0, "only rows of this user (specialists only)")
	personal := fs.Bool("personal", false, "only own rows")
	limit := fs.Int("limit", 0, "page size")
	offset := fs.Int("offset", 0, "page offset")
	var onlyNew *bool
	if withNew {
		onlyNew = fs.Bool("new", false, "only active orders")
	}
	if err := fs.Parse(args); err != nil {
		return client.ListOptions{}, err
	}

	opts := client.ListOptions{Personal: *personal, Limit: *limit, Offset: *offset}
	if *userID != 0 {
		id := model.ID(*userID)
		opts.UserID = &id
	}
	if onlyNew != nil {
		opts.OnlyNew = *onlyNew
	}

	return opts, nil
}

func runListOrders(ctx context.Context, s *client.Session, args []string) (any, error) {
	opts, err := listFlags("orders list", args, true)
	if err != nil {
		return nil, err
	}
	return s.ListOrders(ctx, opts)
}

func idFlag(name string, args []string) (model.ID, error) {
	fs := newFlagSet(name)
	id := fs.Uint("id", 0, "entity id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id == 0 {
		return 0, errors.New("-id is required")
	}
	return *id, nil
}

func runGetOrder(ctx context.Context, s *client.Session, args []string) (any, error) {
	id, err := idFlag("orders get", args)
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func runPatchOrder(ctx context.Context, s *client.Session, args []string) (any, error) {
	fs := newFlagSet("orders patch")
	id := fs.Uint("id", 0, "order id")
	status := fs.String("status", "", "submitted, processed or issued")
	active := fs.String("active", "", "true or false")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *id == 0 {
		return nil, errors.New("-id is required")
	}

	var activeRef *bool
	switch *active {
	case "":
	case "true":
		activeRef = new(bool)
		*activeRef = true
	case "false":
		activeRef = new(bool)
	default:
		return nil, fmt.Errorf("invalid -active %q", *active)
	}

	return s.PatchOrder(ctx, *id, model.OrderStatus(*status), activeRef)
}

func runAcceptOrder(ctx context.Context, s *client.Session, args []string) (any, error) {
	id, err := idFlag("orders accept", args)
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.AcceptResponse(ctx, order)
}

func runCreateResponse(ctx context.Context, s *client.Session, args []string) (any, error) {
	fs := newFlagSet("responses create")
	orderID := fs.Uint("order", 0, "order id")
	percent := fs.String("percent", "", "yearly percent")
	monthly := fs.String("monthly", "", "monthly payment")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	percentValue, err := decimal.NewFromString(*percent)
	if err != nil {
		return nil, fmt.Errorf("invalid percent %q", *percent)
	}
	monthlyValue, err := decimal.NewFromString(*monthly)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly payment %q", *monthly)
	}

	return s.CreateResponse(ctx, model.ResponseInput{
		OrderID:    *orderID,
		Percent:    percentValue,
		MonthlyPay: monthlyValue,
	})
}

func runListResponses(ctx context.Context, s *client.Session, args []string) (any, error) {
	opts, err := listFlags("responses list", args, false)
	if err != nil {
		return nil, err
	}
	return s.ListResponses(ctx, opts)
}

func runListCredits(ctx context.Context, s *client.Session, args []string) (any, error) {
	opts, err := listFlags("credits list", args, false)
	if err != nil {
		return nil, err
	}
	return s.ListCredits(ctx, opts)
}

func runGetCredit(ctx context.Context, s *client.Session, args []string) (any, error) {
	id, err := idFlag("credits get", args)
	if err != nil {
		return nil, err
	}
	return s.GetCredit(ctx, id)
}

func readJSON(path string, dst any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"harukcal/internal/app/authflow"
	"harukcal/internal/app/issue"
	"harukcal/internal/app/meal"
	"harukcal/internal/app/member"
	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type command struct {
	name    string
	usage   string
	session bool
	run     func(ctx context.Context, a *app, args []string, out io.Writer) error
}

var commands = []command{
	{name: "signup", usage: "signup -nickname N -password P -email E [-name NAME]", run: runSignup},
	{name: "login", usage: "login -nickname N -password P", run: runLogin},
	{name: "logout", usage: "logout", run: runLogout},
	{name: "whoami", usage: "whoami", run: runWhoami},
	{name: "nickname", usage: "nickname NEW", session: true, run: runNickname},
	{name: "profile", usage: "profile [-name] [-height] [-weight] [-target] [-activity LOW|MODERATE|HIGH] [-birth] [-gender]", session: true, run: runProfile},
	{name: "photo", usage: "photo FILE", session: true, run: runPhoto},
	{name: "meals", usage: "meals [-date YYYY-MM-DD | -month YYYY-MM | -from YYYY-MM-DD -to YYYY-MM-DD | -all]", session: true, run: runMeals},
	{name: "issues", usage: "issues [list | show ID | edit ID -title T -content C | delete ID]", session: true, run: runIssues},
	{name: "cache", usage: "cache", run: runCache},
}

var errUsage = errors.New("usage")

// run dispatches args to a command and returns the process exit code.
func run(ctx context.Context, a *app, args []string, out io.Writer) int {
	if len(args) == 0 {
		printUsage(out)
		return exitUsage
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}

		if c.session {
			res := a.boot.Run(ctx)
			if res.Phase != authflow.ConfirmedValid {
				fmt.Fprintf(out, "not signed in (%s)\n", res.Phase)
				return exitError
			}
		}

		err := c.run(ctx, a, args[1:], out)
		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(out, "usage: harukcal %s\n", c.usage)
			return exitUsage
		default:
			logx.Error(err, "Command failed", "command", c.name)
			fmt.Fprintf(out, "error: %s\n", userMessage(err))
			return exitError
		}
	}

	printUsage(out)
	return exitUsage
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: harukcal <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(out, "  %s\n", c.usage)
	}
}

// userMessage prefers the message of the outermost coded error.
func userMessage(err error) string {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) && customErr.Message != "" {
		return customErr.Message
	}
	return err.Error()
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runSignup(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("signup", out)
	var in member.SignupInput
	fs.StringVar(&in.Nickname, "nickname", "", "nickname")
	fs.StringVar(&in.Password, "password", "", "password")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Name, "name", "", "real name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in.Nickname == "" || in.Password == "" || in.Email == "" {
		return errUsage
	}

	rec, err := a.members.Signup(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signed up as %s\n", rec.Nickname)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("login", out)
	nickname := fs.String("nickname", "", "nickname")
	password := fs.String("password", os.Getenv("HARUKCAL_PASSWORD"), "password (default $HARUKCAL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *nickname == "" || *password == "" {
		return errUsage
	}

	rec, err := a.auth.Login(ctx, *nickname, *password)
	if err != nil && rec == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(out, "warning: signed in, but the session could not be saved on this device")
	}
	fmt.Fprintf(out, "signed in as %s\n", rec.Nickname)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string, out io.Writer) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "signed out")
	return nil
}

type whoamiOutput struct {
	Phase      string          `json:"phase"`
	IsLoggedIn bool            `json:"isLoggedIn"`
	FromCache  bool            `json:"fromCache"`
	IsAdmin    bool            `json:"isAdmin"`
	User       *session.Record `json:"user,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func runWhoami(ctx context.Context, a *app, _ []string, out io.Writer) error {
	res := a.boot.Run(ctx)
	snap := a.state.Snapshot()

	o := whoamiOutput{
		Phase:      res.Phase.String(),
		IsLoggedIn: snap.IsLoggedIn,
		FromCache:  res.FromCache,
	}
	if snap.IsLoggedIn {
		o.User = &snap.User
		o.IsAdmin = snap.User.IsAdmin()
	}
	if res.Err != nil {
		o.Error = userMessage(res.Err)
	}
	return writeJSON(out, o)
}

func runNickname(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	rec, err := a.auth.ChangeNickname(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "nickname changed to %s\n", rec.Nickname)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("profile", out)
	name := fs.String("name", "", "real name")
	height := fs.String("height", "", "height in cm")
	weight := fs.String("weight", "", "weight in kg")
	target := fs.String("target", "", "daily target calories")
	activity := fs.String("activity", "", "LOW, MODERATE or HIGH")
	birth := fs.String("birth", "", "birth date, YYYY-MM-DD")
	gender := fs.String("gender", "", "gender")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var u member.ProfileUpdate
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			u.Name = name
		case "height":
			u.Height, parseErr = parseFloat(f.Name, *height, parseErr)
		case "weight":
			u.Weight, parseErr = parseFloat(f.Name, *weight, parseErr)
		case "target":
			u.TargetCalories, parseErr = parseFloat(f.Name, *target, parseErr)
		case "activity":
			u.ActivityLevel = activity
		case "birth":
			u.BirthAt = birth
		case "gender":
			u.Gender = gender
		}
	})
	if parseErr != nil {
		return parseErr
	}
	if u == (member.ProfileUpdate{}) {
		return errUsage
	}

	rec, err := a.auth.EditProfile(ctx, u)
	if err != nil {
		return err
	}
	return writeJSON(out, rec)
}

func parseFloat(name, raw string, prev error) (*float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if prev != nil {
			return nil, prev
		}
		return nil, fmt.Errorf("-%s: %q is not a number", name, raw)
	}
	return &v, prev
}

func runPhoto(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	if a.photos == nil {
		return errors.New("photo storage is not configured (STORAGE_ENDPOINT, STORAGE_ACCESS_KEY_ID, STORAGE_SECRET_ACCESS_KEY, STORAGE_PUBLIC_URL)")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	oldURL := a.state.Snapshot().User.ProfileImageURL
	res, err := a.photos.ReplaceProfilePhoto(ctx, filepath.Base(args[0]), f, oldURL)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.URL)
	return nil
}

type cacheOutput struct {
	TodayCalories  int               `json:"todayCalories"`
	TodayNutrients session.Nutrients `json:"todayNutrients"`
	Meals          []json.RawMessage `json:"meals"`
}

func runCache(_ context.Context, a *app, _ []string, out io.Writer) error {
	meals := a.store.MealData()
	if meals == nil {
		meals = []json.RawMessage{}
	}
	return writeJSON(out, cacheOutput{
		TodayCalories:  a.store.TodayCalories(),
		TodayNutrients: a.store.TodayNutrients(),
		Meals:          meals,
	})
}

type mealsOutput struct {
	Summary meal.Summary      `json:"summary"`
	Meals   []json.RawMessage `json:"meals"`
}

// runMeals prints meal history. Without a selection it loads today's meals and refreshes
// the daily caches with them.
func runMeals(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("meals", out)
	date := fs.String("date", "", "day, YYYY-MM-DD")
	month := fs.String("month", "", "month, YYYY-MM")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	all := fs.Bool("all", false, "every recorded meal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 || (*from == "") != (*to == "") {
		return errUsage
	}
	selected := 0
	for _, set := range []bool{*date != "", *month != "", *from != "", *all} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return errUsage
	}

	id := a.state.Snapshot().User.MemberID
	if id == nil {
		return errors.New("the stored profile has no member id, sign in again")
	}

	var meals []meal.Meal
	var err error
	switch {
	case *date != "":
		var day time.Time
		if day, err = parseDay("date", *date); err != nil {
			return err
		}
		meals, err = a.meals.ByDate(ctx, *id, day)
	case *month != "":
		var m time.Time
		if m, err = time.Parse("2006-01", *month); err != nil {
			return fmt.Errorf("-month: %q is not YYYY-MM", *month)
		}
		meals, err = a.meals.Monthly(ctx, *id, m.Year(), m.Month())
	case *from != "":
		var start, end time.Time
		if start, err = parseDay("from", *from); err != nil {
			return err
		}
		if end, err = parseDay("to", *to); err != nil {
			return err
		}
		meals, err = a.meals.ByRange(ctx, *id, start, end)
	case *all:
		meals, err = a.meals.ByMember(ctx, *id)
	default:
		var sum meal.Summary
		if sum, err = a.meals.SyncToday(ctx, a.store, *id, time.Now()); err != nil {
			return err
		}
		return writeJSON(out, mealsOutput{Summary: sum, Meals: a.store.MealData()})
	}
	if err != nil {
		return err
	}

	o := mealsOutput{Summary: meal.Summarize(meals), Meals: make([]json.RawMessage, 0, len(meals))}
	for _, m := range meals {
		o.Meals = append(o.Meals, m.Raw)
	}
	return writeJSON(out, o)
}

func parseDay(name, raw string) (time.Time, error) {
	t, err := time.Parse(meal.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s: %q is not YYYY-MM-DD", name, raw)
	}
	return t, nil
}

func runIssues(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "list" {
		if len(args) > 1 {
			return errUsage
		}
		list, err := a.issues.List(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, list)
	}
	if len(args) < 2 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return errUsage
	}

	switch args[0] {
	case "show":
		is, err := a.issues.Get(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(out, is)
	case "edit":
		fs := newFlagSet("issues edit", out)
		var u issue.Update
		fs.StringVar(&u.Title, "title", "", "title")
		fs.StringVar(&u.Content, "content", "", "content")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		is, err := a.issues.Update(ctx, id, u)
		if err != nil {
			return err
		}
		return writeJSON(out, is)
	case "delete":
		if err := a.issues.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "issue %d deleted\n", id)
		return nil
	}
	return errUsage
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"recipe-suggester/internal/client"
	"recipe-suggester/internal/core/flow"
	"recipe-suggester/internal/core/ingredients"
	"recipe-suggester/internal/core/poller"
	"recipe-suggester/internal/core/session"
	"recipe-suggester/internal/core/upload"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

type options struct {
	image    string
	resume   int64
	email    string
	password string
	signup   bool
	add      string
	remove   string
	timeout  time.Duration
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.image, "image", "", "path of the fridge photo to upload")
	flag.Int64Var(&opts.resume, "resume", 0, "resume an existing recipe by id instead of uploading")
	flag.StringVar(&opts.email, "email", cfg.Client.Email, "account email")
	flag.StringVar(&opts.password, "password", cfg.Client.Password, "account password")
	flag.BoolVar(&opts.signup, "signup", false, "create the account before logging in")
	flag.StringVar(&opts.add, "add", "", "comma separated ingredients to add before generating")
	flag.StringVar(&opts.remove, "remove", "", "comma separated 1-based positions to remove before generating")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "give up waiting after this long")
	flag.Parse()

	if err := common.InitLogger("suggester", cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if opts.image == "" && opts.resume == 0 {
		fmt.Fprintln(os.Stderr, "either -image or -resume is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if err := run(ctx, cfg, opts); err != nil {
		common.LogError("suggester failed", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	sess := session.NewWithToken(cfg.Client.Token)
	api := client.NewFromConfig(cfg, sess)

	if sess.Token() == "" {
		if err := signIn(ctx, api, sess, opts); err != nil {
			return err
		}
	}

	obs := newConsoleObserver()
	ctrl := flow.NewController(api, sess, obs, consoleNotifier{}, flow.Options{
		Interval:        cfg.Poller.Interval,
		CaptionInterval: cfg.Poller.CaptionInterval,
	})
	defer ctrl.Close()

	if opts.resume != 0 {
		if err := ctrl.Resume(ctx, opts.resume); err != nil {
			return err
		}
	} else {
		f, err := os.Open(opts.image)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		res, err := ctrl.StartDetection(ctx, upload.Image{Name: filepath.Base(opts.image), Reader: f})
		if err != nil {
			return err
		}
		fmt.Printf("Recipe #%d created, detecting ingredients...\n", res.Recipe.ID)
	}

	var buf *ingredients.Buffer
	select {
	case buf = <-obs.detected:
	case err := <-obs.detectFailed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	fmt.Println("\nDetected ingredients:")
	fmt.Print(common.FormatIngredients(buf.Items()))

	edited, err := applyEdits(buf, opts)
	if err != nil {
		return err
	}

	if !edited {
		// 恢復時若已有食譜，直接輸出
		if recipe, ok := ctrl.Recipe(); ok {
			fmt.Println()
			fmt.Print(common.FormatRecipe(recipe))
			return nil
		}
		// 恢復的食譜任務仍在輪詢或剛結束，等待結果而不重新送出
		switch ctrl.RecipePoller().State() {
		case poller.StatePolling, poller.StateCompleted, poller.StateFailed:
			fmt.Fprintln(os.Stderr, "Recipe generation already in progress, waiting...")
			return waitRecipe(ctx, obs)
		}
	}

	if edited {
		fmt.Println("\nEdited ingredients:")
		fmt.Print(common.FormatIngredients(buf.Items()))
	}

	obs.drain()
	if _, err := ctrl.GenerateRecipe(ctx); err != nil {
		return err
	}
	return waitRecipe(ctx, obs)
}

func waitRecipe(ctx context.Context, obs *consoleObserver) error {
	select {
	case recipe := <-obs.ready:
		fmt.Println()
		fmt.Print(common.FormatRecipe(recipe))
		return nil
	case err := <-obs.recipeFailed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func signIn(ctx context.Context, api *client.Client, sess *session.Session, opts options) error {
	if opts.email == "" || opts.password == "" {
		return errors.New("email and password are required when no token is configured")
	}

	var (
		resp common.AuthResponse
		err  error
	)
	if opts.signup {
		resp, err = api.Signup(ctx, opts.email, opts.password, nil)
	} else {
		resp, err = api.Login(ctx, opts.email, opts.password)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	sess.SignIn(resp)
	common.LogInfo("已登入", zap.String("email", opts.email))
	return nil
}

// applyEdits 先移除再新增；位置由大到小移除以免索引位移
func applyEdits(buf *ingredients.Buffer, opts options) (bool, error) {
	edited := false

	if opts.remove != "" {
		var positions []int
		for _, field := range strings.Split(opts.remove, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			n, err := strconv.Atoi(field)
			if err != nil {
				return false, fmt.Errorf("invalid position %q", field)
			}
			positions = append(positions, n-1)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(positions)))
		for _, i := range positions {
			if err := buf.Remove(i); err != nil {
				return false, err
			}
			edited = true
		}
	}

	for _, name := range strings.Split(opts.add, ",") {
		if buf.Add(name) {
			edited = true
		}
	}
	return edited, nil
}

// consoleObserver 將進度文字寫到 stderr，結果交給主流程
type consoleObserver struct {
	detected     chan *ingredients.Buffer
	detectFailed chan error
	ready        chan common.GeneratedRecipe
	recipeFailed chan error
}

func newConsoleObserver() *consoleObserver {
	return &consoleObserver{
		detected:     make(chan *ingredients.Buffer, 1),
		detectFailed: make(chan error, 1),
		ready:        make(chan common.GeneratedRecipe, 1),
		recipeFailed: make(chan error, 1),
	}
}

// drain 丟棄恢復時留下的舊食譜結果
func (o *consoleObserver) drain() {
	for {
		select {
		case <-o.ready:
		case <-o.recipeFailed:
		default:
			return
		}
	}
}

func (o *consoleObserver) OnCaption(kind common.JobKind, caption string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", kind, caption)
}

func (o *consoleObserver) OnDetectionComplete(_ int64, buf *ingredients.Buffer) {
	select {
	case o.detected <- buf:
	default:
	}
}

func (o *consoleObserver) OnDetectionFailed(_ int64, err error) {
	select {
	case o.detectFailed <- err:
	default:
	}
}

func (o *consoleObserver) OnRecipeReady(_ int64, recipe common.GeneratedRecipe) {
	select {
	case o.ready <- recipe:
	default:
	}
}

func (o *consoleObserver) OnRecipeFailed(_ int64, err error) {
	select {
	case o.recipeFailed <- err:
	default:
	}
}

type consoleNotifier struct{}

func (consoleNotifier) Success(message string) { fmt.Fprintln(os.Stderr, "✔ "+message) }
func (consoleNotifier) Error(message string)   { fmt.Fprintln(os.Stderr, "✘ "+message) }

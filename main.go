package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/antibyte/basicterm/pkg/auth"
	"github.com/antibyte/basicterm/pkg/basic"
	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/console"
	"github.com/antibyte/basicterm/pkg/logger"
	"github.com/antibyte/basicterm/pkg/storage"
	"github.com/antibyte/basicterm/pkg/terminal"
)

func main() {
	consoleMode := flag.Bool("console", false, "run the interpreter on the local terminal instead of serving")
	configPath := flag.String("config", "settings.cfg", "path to the configuration file")
	flag.Parse()

	// Configuration first; everything else reads from it.
	if err := configuration.Initialize(*configPath); err != nil {
		fmt.Printf("Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.ConfigInfo("system started - configuration loaded from: %s", *configPath)

	dbFile := configuration.GetString("System", "database_file", "basicterm.db")
	db, err := storage.InitDB(dbFile)
	if err != nil {
		logger.Fatal(logger.AreaStorage, "database initialization failed: %v", err)
	}
	defer db.Close()
	if err := storage.CreateTables(db); err != nil {
		logger.Fatal(logger.AreaStorage, "table creation failed: %v", err)
	}
	logger.Info(logger.AreaStorage, "database ready: %s", dbFile)

	store := storage.NewStore(db)

	if *consoleMode {
		runConsole(store)
		return
	}

	auth.SetStore(store)
	handler := terminal.NewTerminalHandler(store)
	logger.Info(logger.AreaTerminal, "terminal handler created (per-session interpreters)")

	// Authentication API routes
	http.HandleFunc("/api/auth/session", auth.HandleCreateSession)
	http.HandleFunc("/api/auth/register", auth.HandleRegister)
	http.HandleFunc("/api/auth/login", auth.HandleLogin)
	http.HandleFunc("/api/auth/validate", auth.HandleTokenValidation)
	http.HandleFunc("/api/auth/logout", auth.HandleLogout)

	// Terminal websocket
	http.HandleFunc("/ws", handler.HandleWebSocket)

	// Root route - must be registered last so it does not shadow the others
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexPage)
	})

	port := configuration.GetString("Network", "http_port", "8080")
	logger.Info(logger.AreaGeneral, "HTTP server listening on port %s", port)
	fmt.Printf("BasicTerm listening on :%s\n", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Fatal(logger.AreaGeneral, "HTTP server failed: %v", err)
	}
}

// runConsole starts the local read-eval loop. Programs are saved under the
// fixed "console" namespace in the same database the server uses.
func runConsole(store *storage.Store) {
	var programs basic.SourceStore
	if store != nil {
		programs = store.ProgramsFor("console")
	}
	if err := console.Run(programs); err != nil {
		fmt.Printf("console error: %v\n", err)
		os.Exit(1)
	}
}

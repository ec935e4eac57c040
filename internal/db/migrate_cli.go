package db

import (
	"bufio"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
)

// RunMigrateCommand implements `particle-report migrate <action>`. It
// opens the database without the usual schema bootstrap so that
// migrations alone decide what exists, runs one action, and exits the
// process on failure.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) == 0 {
		printMigrateUsage()
		return
	}
	action := strings.ToLower(args[0])
	if action == "help" || action == "-h" || action == "--help" {
		printMigrateUsage()
		return
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", dbPath, err)
	}
	defer database.Close()

	migrationsFS := MigrationsFS()

	switch action {
	case "up":
		if err := database.MigrateUp(migrationsFS); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println("migrations applied")
		printVersionLine(database, migrationsFS)

	case "down":
		if err := database.MigrateDown(migrationsFS); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println("rolled back one migration")
		printVersionLine(database, migrationsFS)

	case "status":
		migrateStatus(database, migrationsFS)

	case "version":
		if len(args) > 1 {
			v := parseVersionArg(args[1], "version")
			if err := database.MigrateTo(migrationsFS, v); err != nil {
				log.Fatalf("%v", err)
			}
			fmt.Printf("schema migrated to version %d\n", v)
		} else {
			printVersionLine(database, migrationsFS)
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("force needs a version number, e.g. `migrate force 1`")
		}
		migrateForce(database, migrationsFS, args[1])

	case "baseline":
		if len(args) < 2 {
			log.Fatal("baseline needs a version number, e.g. `migrate baseline 1`")
		}
		v := parseVersionArg(args[1], "baseline")
		if err := database.BaselineAtVersion(v); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("database baselined at version %d\n", v)

	default:
		fmt.Fprintf(os.Stderr, "unknown migrate action %q\n\n", action)
		printMigrateUsage()
		os.Exit(2)
	}
}

func parseVersionArg(arg, action string) uint {
	v, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		log.Fatalf("%s needs a version number, got %q", action, arg)
	}
	return uint(v)
}

func printVersionLine(database *DB, migrationsFS fs.FS) {
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		log.Fatalf("failed to read schema version: %v", err)
	}
	if version == 0 && !dirty {
		fmt.Println("schema version: none recorded")
		return
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Printf("schema version: %d (%s)\n", version, state)
}

func migrateStatus(database *DB, migrationsFS fs.FS) {
	latest, err := LatestMigrationVersion(migrationsFS)
	if err != nil {
		log.Fatalf("failed to read embedded migrations: %v", err)
	}

	tracked, err := database.migrationTableExists()
	if err != nil {
		log.Fatalf("failed to inspect database: %v", err)
	}
	if !tracked {
		fmt.Printf("schema version: none recorded (latest available: %d)\n", latest)
		fmt.Println("this database is not under migration tracking; adopt it with")
		fmt.Println("`particle-report migrate baseline 1` followed by `migrate up`")
		return
	}

	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		log.Fatalf("failed to read schema version: %v", err)
	}

	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Printf("schema version: %d (%s), latest available: %d\n", version, state, latest)

	switch {
	case dirty:
		fmt.Println("a migration was interrupted; inspect the database, then `migrate force <n>`")
	case version < latest:
		fmt.Printf("%d migration(s) pending; run `particle-report migrate up`\n", latest-version)
	case version > latest:
		fmt.Println("schema is newer than this binary; upgrade particle-report")
	default:
		fmt.Println("up to date")
	}
}

// migrateForce rewrites the recorded version after operator
// confirmation. It is the recovery path for a dirty schema, so it
// deliberately touches nothing beyond schema_migrations.
func migrateForce(database *DB, migrationsFS fs.FS, arg string) {
	version, err := strconv.Atoi(arg)
	if err != nil {
		log.Fatalf("force needs a version number, got %q", arg)
	}

	fmt.Printf("force will mark the schema as version %d without running any SQL.\n", version)
	fmt.Print("continue? [y/N] ")
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
		fmt.Println("aborted")
		return
	}

	if err := database.MigrateForce(migrationsFS, version); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("schema version forced to %d\n", version)
}

func printMigrateUsage() {
	fmt.Print(`usage: particle-report [-db <path>] migrate <action>

actions:
  status         show the recorded schema version and what is pending
  up             apply all pending migrations
  down           roll back the most recent migration
  version        print the recorded schema version
  version <n>    migrate up or down to exactly version n
  force <n>      mark the schema as version n without running SQL
  baseline <n>   adopt migration tracking on an existing database
  help           show this message

A database created by the current binary already has the full schema;
bring it under tracking with ` + "`migrate baseline 1`" + ` then ` + "`migrate up`" + `.
See internal/db/migrations/README.md for file conventions.
`)
}

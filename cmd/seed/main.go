// Seed creates demo users and a room in the configured store and prints
// tokens that can be used to open session connections.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"coderoom/internal/config"
	"coderoom/internal/model"
	"coderoom/internal/repository"
	"coderoom/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	ownerName       string
	participantName string
	roomName        string
	mode            string
	ownerRole       string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed users and rooms for local development",
	Long: `Seed writes demo data into the store selected by STORE_DRIVER.

  seed room --owner Ada --participant Linus     Create two users and a room
  seed token <userId>                           Print a token for a user`,
}

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Create an owner, a participant and a room",
	RunE:  runRoom,
}

var tokenCmd = &cobra.Command{
	Use:   "token <userId>",
	Short: "Issue a token for an existing user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		resp, err := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL).IssueToken(args[0], "")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
		return nil
	},
}

func init() {
	roomCmd.Flags().StringVar(&ownerName, "owner", "Ada", "display name of the room owner")
	roomCmd.Flags().StringVar(&participantName, "participant", "Linus", "display name of the invited participant")
	roomCmd.Flags().StringVar(&roomName, "name", "Two Sum", "room name")
	roomCmd.Flags().StringVar(&mode, "mode", string(model.ModeTeaching), "initial mode (teaching|interview)")
	roomCmd.Flags().StringVar(&ownerRole, "owner-role", string(model.OwnerRoleTeacher), "owner role (teacher|interviewer)")

	rootCmd.AddCommand(roomCmd, tokenCmd)
}

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRoom(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	owner := &model.User{Name: ownerName, Role: "user"}
	participant := &model.User{Name: participantName, Role: "user"}
	for _, u := range []*model.User{owner, participant} {
		if err := store.Users().Create(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", u.Name, err)
		}
	}

	identity := service.NewIdentityService(store.Users(), nil, cfg.UpstreamTimeout)
	rooms := service.NewRoomService(store.Rooms(), identity, cfg.UpstreamTimeout)
	room, err := rooms.CreateRoom(ctx, owner.ID, &service.CreateRoomInput{
		Name:                roomName,
		OwnerRole:           model.OwnerRole(ownerRole),
		Mode:                model.Mode(mode),
		AllowedParticipants: []string{participant.ID},
		ProblemTitle:        "Two Sum",
		ProblemDescription:  "Return indices of the two numbers that add up to target.",
		TimeComplexity:      "O(n)",
		SpaceComplexity:     "O(n)",
	})
	if err != nil {
		return err
	}

	auth := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "room      %s (%s, %s)\n", room.RoomID, room.Name, room.Mode)
	for _, u := range []*model.User{owner, participant} {
		tok, err := auth.IssueToken(u.ID, u.Role)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-9s %s  token=%s\n", u.Name, u.ID, tok.Token)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMongo:
		store, err := repository.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, errors.New("unknown store driver")
}

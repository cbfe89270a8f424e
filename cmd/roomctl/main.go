// roomctl 运维命令行：查看房间、清空全部房间。
//
//	roomctl show --code ABC234
//	roomctl show --id <room-id>
//	roomctl clear-all --yes
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"lila-rooms/internal/bootstrap"
	"lila-rooms/internal/domain"
	"lila-rooms/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "roomctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: roomctl <show|clear-all> [flags]")
	}
	cmd, rest := args[0], args[1:]

	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "overall timeout")
	var (
		code, id string
		yes      bool
	)
	switch cmd {
	case "show":
		fs.StringVar(&code, "code", "", "room invite code")
		fs.StringVar(&id, "id", "", "room id")
	case "clear-all":
		fs.BoolVarP(&yes, "yes", "y", false, "confirm deleting every room")
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cmd == "clear-all" {
		if err := checkSharedStores(cfg); err != nil {
			return err
		}
	}
	log := bootstrap.NewLogger(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, redisClient, repos, err := bootstrap.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if db != nil {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}()

	rooms, err := service.NewRoomService(repos.Rooms)
	if err != nil {
		return err
	}

	switch cmd {
	case "show":
		return show(ctx, rooms, code, id, out)
	default:
		if !yes {
			return errors.New("clear-all deletes every room, pass --yes to confirm")
		}
		if err := rooms.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "all rooms cleared")
		return nil
	}
}

// checkSharedStores clear-all 只能清理和服务进程共享的存储。
// 内存模式的数据和进程内缓存都在服务进程里，这时应使用 POST /api/admin/clear。
func checkSharedStores(cfg *bootstrap.Config) error {
	if !cfg.UseDatabase() {
		return errors.New("clear-all needs DB_HOST: in-memory rooms live in the server process, use POST /api/admin/clear")
	}
	if !cfg.UseRedis() {
		return errors.New("clear-all needs REDIS_ADDR: without a shared cache the server keeps serving cleared rooms, use POST /api/admin/clear")
	}
	return nil
}

func show(ctx context.Context, rooms *service.RoomService, code, id string, out io.Writer) error {
	var (
		room *domain.GameRoom
		err  error
	)
	switch {
	case code != "":
		room, err = rooms.GetRoomByCode(ctx, code)
	case id != "":
		room, err = rooms.GetRoomByID(ctx, id)
	default:
		return errors.New("show needs --code or --id")
	}
	if err != nil {
		logrus.WithError(err).Debug("roomctl: lookup failed")
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(room)
}

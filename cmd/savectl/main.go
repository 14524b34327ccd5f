// savectl 是运维用的命令行工具：直接读写某台设备的本地存档块，并为调试签发会话令牌。
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/SlpAus/eastend-save-backend/internal/platform/backup"
	"github.com/SlpAus/eastend-save-backend/internal/platform/config"
	"github.com/SlpAus/eastend-save-backend/internal/platform/database"
	"github.com/SlpAus/eastend-save-backend/internal/platform/startup"
	"github.com/SlpAus/eastend-save-backend/internal/save/local"
	"github.com/SlpAus/eastend-save-backend/pkg/token"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	configDir string
	deviceID  string
)

var rootCmd = &cobra.Command{
	Use:           "savectl",
	Short:         "Inspect and maintain device-local save blobs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "./config", "directory containing config.yaml")

	for _, cmd := range []*cobra.Command{listCmd, exportCmd, importCmd, clearCmd, restoreCmd} {
		cmd.Flags().StringVar(&deviceID, "device", "", "device ID whose saves to operate on")
		_ = cmd.MarkFlagRequired("device")
	}
	exportCmd.Flags().StringP("out", "o", "", "write to file instead of stdout")
	clearCmd.Flags().Bool("yes", false, "confirm deleting every local save of the device")
	tokenCmd.Flags().String("user", "", "user ID to issue the token for")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(listCmd, exportCmd, importCmd, clearCmd, snapshotCmd, restoreCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// openLocalStore 按配置连接本地存档后端，返回设备的存储与释放函数
func openLocalStore(ctx context.Context) (*local.Store, func(), error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	var rdb redis.Cmdable
	if strings.EqualFold(cfg.Saves.LocalBackend, startup.BackendRedis) {
		client, err := database.InitRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		rdb = client
	}
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		_ = database.CloseRedis()
		return nil, nil, err
	}
	closeAll := func() {
		_ = database.CloseRedis()
		_ = database.CloseDB()
	}

	if strings.EqualFold(cfg.Saves.LocalBackend, startup.BackendSQL) {
		if err := local.MigrateSQL(db); err != nil {
			closeAll()
			return nil, nil, err
		}
	}
	substrate, err := startup.BuildSubstrate(cfg.Saves, rdb, db)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return local.New(substrate, local.Key(cfg.Saves.KeyPrefix, deviceID)), closeAll, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the save slots of a device",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeAll, err := openLocalStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		summaries, err := store.ListSummaries(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range summaries {
			if s.IsEmpty {
				fmt.Fprintf(out, "槽位 %d: 空\n", s.SlotNumber)
				continue
			}
			updated := ""
			if s.UpdatedAt != nil {
				updated = s.UpdatedAt.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(out, "槽位 %d: %s  %s Lv.%d  游戏时间 %ds  更新于 %s\n",
				s.SlotNumber, s.SaveName, s.CharacterName, s.CharacterLevel, s.PlayTime, updated)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the save blob of a device as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeAll, err := openLocalStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		data, err := store.Export(cmd.Context())
		if err != nil {
			return err
		}
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		return os.WriteFile(outPath, data, 0o644)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the save blob of a device with the contents of a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("读取文件失败: %w", err)
		}
		store, closeAll, err := openLocalStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		if err := store.Import(cmd.Context(), data); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "导入完成")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every local save of a device",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("清空操作不可撤销，请使用 --yes 确认")
		}
		store, closeAll, err := openLocalStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "已清空")
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configDir)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		if cfg.Auth.Secret == "" {
			return fmt.Errorf("未配置 auth.secret，服务器无法验证此工具签发的令牌")
		}
		if err := token.SetSecretKey([]byte(cfg.Auth.Secret)); err != nil {
			return err
		}

		userID, _ := cmd.Flags().GetString("user")
		tok, err := token.IssueSessionToken(userID, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

// openSnapshotter 连接Redis与数据库，只在 redis 后端下可用
func openSnapshotter(ctx context.Context) (*backup.Snapshotter, *config.Config, func(), error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if !strings.EqualFold(cfg.Saves.LocalBackend, startup.BackendRedis) {
		return nil, nil, nil, fmt.Errorf("备份只适用于 redis 后端，当前为 %q", cfg.Saves.LocalBackend)
	}
	client, err := database.InitRedis(ctx, cfg.Database.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		_ = database.CloseRedis()
		return nil, nil, nil, err
	}
	closeAll := func() {
		_ = database.CloseRedis()
		_ = database.CloseDB()
	}
	if err := local.MigrateSQL(db); err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	return backup.NewSnapshotter(client, db, cfg.Saves.KeyPrefix, nil), cfg, closeAll, nil
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy every device save blob from Redis into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshotter, _, closeAll, err := openSnapshotter(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		count, err := snapshotter.CreateSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已备份 %d 台设备的存档\n", count)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Write the database backup of a device back into Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshotter, cfg, closeAll, err := openSnapshotter(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAll()

		if err := snapshotter.RestoreDevice(cmd.Context(), local.Key(cfg.Saves.KeyPrefix, deviceID)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "已还原")
		return nil
	},
}

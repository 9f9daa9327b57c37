package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/user/folio/internal/config"
	"github.com/user/folio/internal/repository"
	"github.com/user/folio/internal/service"
)

func main() {
	var (
		csvPath = flag.String("csv", "", "源 CSV 路径（默认取 CSV_PATH 环境变量）")
		reset   = flag.Bool("reset", false, "清空已有语料后重新加载")
	)
	flag.Parse()

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	cfg := config.Load()
	if *csvPath == "" {
		*csvPath = cfg.CSVPath
	}

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	// 建表（含全文检索列与索引）
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 读取扁平源记录
	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("打开 CSV 失败: %v", err)
	}
	defer f.Close()

	records, err := service.ReadRecords(f)
	if err != nil {
		log.Fatalf("读取 CSV 失败: %v", err)
	}
	log.Printf("[Loader] 读入 %d 条源记录", len(records))

	// 执行加载
	start := time.Now()
	loader := service.NewLoader(db)
	if _, err := loader.Run(records, *reset); err != nil {
		log.Fatalf("加载失败: %v", err)
	}

	log.Printf("[Loader] 加载完成，耗时 %v", time.Since(start))
}

package config

import (
	"fmt"

	"github.com/pkg/errors"
)

// DatabaseConfig MySQL/TiDB 任务库连接配置
// Replicas 非空时通过 dbresolver 做读写分离：读请求随机落到副本
type DatabaseConfig struct {
	Host     string   `json:"host" yaml:"host"`
	Port     int      `json:"port" yaml:"port"`
	User     string   `json:"user" yaml:"user"`
	Password string   `json:"password" yaml:"password"`
	DBName   string   `json:"dbName" yaml:"dbName"`
	Params   string   `json:"params" yaml:"params"`     // DSN 附加参数
	Replicas []string `json:"replicas" yaml:"replicas"` // 只读副本 DSN 列表
}

func (d *DatabaseConfig) Validate() []error {
	var errs = make([]error, 0)
	if d.Host == "" {
		errs = append(errs, errors.Errorf("数据库地址不能为空"))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, errors.Errorf("数据库端口 %d 非法", d.Port))
	}
	if d.DBName == "" {
		errs = append(errs, errors.Errorf("数据库名不能为空"))
	}
	return errs
}

func NewDefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:   "127.0.0.1",
		Port:   4000,
		User:   "root",
		DBName: "legal_review",
		Params: "charset=utf8mb4&parseTime=True&loc=Local",
	}
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Params)
}

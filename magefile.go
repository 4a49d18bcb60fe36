//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

// Build 编译服务端二进制
func Build() error {
	mg.Deps(Tidy)
	fmt.Println("Building stockline...")
	return sh.RunV("go", "build", "-o", "bin/stockline", "./cmd/stockline")
}

// Test 运行全部测试
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Vet 静态检查
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Tidy 整理依赖
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Run 本地启动服务
func Run() error {
	mg.Deps(Build)
	return sh.RunV("./bin/stockline")
}

// Clean 清理构建产物
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll("bin")
}
